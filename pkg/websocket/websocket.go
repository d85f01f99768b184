package websocketPkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"engagement-service/internal/entity"
	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConnected = errors.New("not connected to vision service")

const (
	requestDetect    = "detect"
	requestLandmarks = "landmarks"
)

// IVision is the face detector and landmark extractor hosted by the external
// vision service.
type IVision interface {
	Detect(ctx context.Context, frame image.Image) ([]entity.FaceBox, error)
	Extract(ctx context.Context, region image.Image) (entity.LandmarkSet, bool, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type visionRequest struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

type visionFace struct {
	BBox       [4]int  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

type visionResponse struct {
	Faces     []visionFace   `json:"faces,omitempty"`
	Landmarks []entity.Point `json:"landmarks,omitempty"`
	Found     bool           `json:"found"`
	Error     string         `json:"error,omitempty"`
}

type webSocketClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	roundTrip    sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *logrus.Logger
	done         chan struct{}
}

func NewVisionClient(log *logrus.Logger) IVision {
	return NewVisionClientWithURL(visionURL(), log)
}

func NewVisionClientWithURL(url string, log *logrus.Logger) IVision {
	client := &webSocketClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  durationFromEnv("VISION_READ_TIMEOUT", 10*time.Second),
		writeTimeout: durationFromEnv("VISION_WRITE_TIMEOUT", 5*time.Second),
		log:          log,
		done:         make(chan struct{}),
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	c.roundTrip.Lock()
	defer c.roundTrip.Unlock()

	if c.IsConnected() {
		return
	}
	if err := c.Reconnect(); err != nil {
		c.log.Warnf("Initial connection to vision service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Infof("Connected to vision service at %s", c.url)
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("vision service URL not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping to vision service failed, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *webSocketClient) connection() (*websocket.Conn, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn, nil
	}

	if err := c.Reconnect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *webSocketClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// call performs one request/response exchange. Exchanges are serialized so a
// reply always belongs to the request just written.
func (c *webSocketClient) call(ctx context.Context, kind string, img image.Image) (*visionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("encode %s image: %w", kind, err)
	}

	payload, err := json.Marshal(visionRequest{
		Type:  kind,
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, err
	}

	c.roundTrip.Lock()
	defer c.roundTrip.Unlock()

	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(c.deadline(ctx, c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error sending %s request: %w", kind, err)
	}

	conn.SetReadDeadline(c.deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error reading %s response: %w", kind, err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var resp visionResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s response: %w", kind, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("vision service %s: %s", kind, resp.Error)
	}

	return &resp, nil
}

func (c *webSocketClient) Detect(ctx context.Context, frame image.Image) ([]entity.FaceBox, error) {
	resp, err := c.call(ctx, requestDetect, frame)
	if err != nil {
		return nil, err
	}

	faces := make([]entity.FaceBox, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, entity.FaceBox{
			BBox: entity.BoundingBox{
				X1: f.BBox[0],
				Y1: f.BBox[1],
				X2: f.BBox[2],
				Y2: f.BBox[3],
			},
			Confidence: f.Confidence,
		})
	}

	c.log.Debugf("Vision service detected %d faces", len(faces))
	return faces, nil
}

func (c *webSocketClient) Extract(ctx context.Context, region image.Image) (entity.LandmarkSet, bool, error) {
	resp, err := c.call(ctx, requestLandmarks, region)
	if err != nil {
		return nil, false, err
	}

	if !resp.Found || len(resp.Landmarks) == 0 {
		return nil, false, nil
	}
	return entity.LandmarkSet(resp.Landmarks), true, nil
}

func visionURL() string {
	url := os.Getenv("VISION_SERVICE_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/vision/ws"
	}
	return url
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
