package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"engagement-service/internal/entity"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "engagement:batch:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IReportCache stores batch reports keyed by request content.
type IReportCache interface {
	GetReport(ctx context.Context, key string) (*entity.BatchReport, error)
	SetReport(ctx context.Context, key string, report *entity.BatchReport) error
	Enabled() bool
}

// ErrMiss is returned by GetReport when nothing is cached under key.
var ErrMiss = errors.New("report not cached")

type redisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

type noopCache struct{}

// New connects to REDIS_ADDRESS. Without an address the cache is disabled and
// every lookup misses.
func New(log *logrus.Logger) IReportCache {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		log.Info("REDIS_ADDRESS not set, batch report cache disabled")
		return NewNoop()
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	ttl, err := time.ParseDuration(os.Getenv("REPORT_CACHE_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 10 * time.Minute
	}

	log.Infof("Connecting to Redis at %s...", redisAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Errorf("Failed to connect to Redis: %v", err)
	} else {
		log.Info("Successfully connected to Redis")
	}

	return NewWithClient(client, ttl, log)
}

// NewNoop returns a cache that stores nothing.
func NewNoop() IReportCache {
	return noopCache{}
}

func NewWithClient(client *redis.Client, ttl time.Duration, log *logrus.Logger) IReportCache {
	return &redisClient{client: client, ttl: ttl, log: log}
}

// ReportKey hashes the frames and thresholds of a batch request.
func ReportKey(frames []string, thresholds entity.BatchThresholds) string {
	h := sha256.New()
	fmt.Fprintf(h, "%g|%g|%d", thresholds.EngagementThreshold, thresholds.LivenessThreshold, len(frames))
	for _, f := range frames {
		fmt.Fprintf(h, "|%d:", len(f))
		h.Write([]byte(f))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (r *redisClient) Enabled() bool {
	return true
}

func (r *redisClient) GetReport(ctx context.Context, key string) (*entity.BatchReport, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debugf("Report cache miss for key %s", key)
		return nil, ErrMiss
	} else if err != nil {
		r.log.Errorf("Error getting report for key %s: %v", key, err)
		return nil, err
	}

	var report entity.BatchReport
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	r.log.Debugf("Report cache hit for key %s", key)
	return &report, nil
}

func (r *redisClient) SetReport(ctx context.Context, key string, report *entity.BatchReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Errorf("Error caching report for key %s: %v", key, err)
		return err
	}
	return nil
}

func (noopCache) Enabled() bool {
	return false
}

func (noopCache) GetReport(context.Context, string) (*entity.BatchReport, error) {
	return nil, ErrMiss
}

func (noopCache) SetReport(context.Context, string, *entity.BatchReport) error {
	return nil
}
