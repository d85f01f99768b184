package engagementHandler

import (
	"time"

	"engagement-service/internal/api/engagement"
	contextPkg "engagement-service/pkg/context"
	"engagement-service/pkg/handlerUtil"
	"engagement-service/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const (
	detectTimeout = 15 * time.Second
	batchTimeout  = 2 * time.Minute
	streamTimeout = 10 * time.Second
	streamIdle    = 60 * time.Second
)

func (h *EngagementHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), detectTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var (
		result *engagement.DetectResponse
		err    error
	)

	file, fileErr := ctx.FormFile("image")
	if fileErr == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		fileContent, err := file.Open()
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
		}
		defer fileContent.Close()

		data, err := h.utils.ReadFile(fileContent)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
		}

		result, err = h.engagementService.DetectBytes(c, data)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_engagement")
		}
	} else {
		var req engagement.DetectRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		result, err = h.engagementService.DetectBase64(c, req.Frame)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_engagement")
		}
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":     requestID,
			"path":           ctx.Path(),
			"faces_detected": result.FacesDetected,
		}).Info("Engagement detection successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *EngagementHandler) BatchProcess(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), batchTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req engagement.BatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"frames":     len(req.Frames),
	}).Debug("Processing batch request")

	report, err := h.engagementService.BatchProcess(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "batch_process")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, report)
	}
}

func (h *EngagementHandler) Health(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(h.engagementService.Health())
}

// handleWebSocket scores each binary frame it receives and replies with the
// single-frame result. A bad frame gets an error reply; the stream goes on.
func (h *EngagementHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("Engagement stream client connected")
	defer h.log.Info("Engagement stream client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamIdle)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Engagement stream error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		result, err := h.engagementService.DetectBytes(ctx, message)
		cancel()

		var reply interface{} = result
		if err != nil {
			h.log.Warnf("Error processing stream frame: %v", err)
			reply = handlerUtil.ErrorResponse{Error: err.Error()}
		}

		if err := c.SetWriteDeadline(time.Now().Add(streamTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(reply); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}
