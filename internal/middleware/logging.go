package middleware

import (
	"errors"
	"fmt"
	"time"

	"engagement-service/pkg/log"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// frame payloads are replaced by their size before a body is logged
var payloadFields = []string{"frame", "frames", "image", "image_base64"}

func newLoggingMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		status := responseStatus(c, err)
		fields := log.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    time.Since(start).Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 {
			fields["request_body"] = summarizeRequestBody(body)
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}

		return err
	}
}

// responseStatus is the status the client will see. A returned error is
// written by the app's ErrorHandler only after the middleware chain unwinds.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func summarizeRequestBody(body []byte) string {
	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return fmt.Sprintf("[non-JSON body, %d bytes]", len(body))
	}

	for _, field := range payloadFields {
		switch v := jsonBody[field].(type) {
		case string:
			jsonBody[field] = fmt.Sprintf("[%d chars]", len(v))
		case []interface{}:
			jsonBody[field] = fmt.Sprintf("[%d items]", len(v))
		}
	}

	summarized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[summarization-failed]"
	}

	return string(summarized)
}
