package handlerUtil

import (
	"context"
	"errors"

	"engagement-service/internal/api/engagement"
	"engagement-service/pkg/log"
	"engagement-service/pkg/response"
	"engagement-service/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) fields(requestID string, err error, path string, operation string) log.Fields {
	return log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}
}

// Handle maps err to a JSON error reply. Coded errors keep their status;
// anything unrecognized fails the request with its message as a client error.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	if errors.Is(err, engagement.ErrInternalServerError) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Error("Internal server error")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Internal server error",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		entry := h.logger.WithFields(h.fields(requestID, err, path, operation)).WithField("code", respErr.Code)
		if respErr.Code >= fiber.StatusInternalServerError {
			entry.Error("Operation failed with error response")
		} else {
			entry.Warn("Operation failed with error response")
		}
		return c.Status(respErr.Code).JSON(ErrorResponse{Error: respErr.Error()})
	}

	if errors.Is(err, utils.ErrFileTooLarge) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Warn("File too large")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "File too large. Maximum size is 10MB.",
			Code:  "FILE_TOO_LARGE",
		})
	}

	if errors.Is(err, utils.ErrNotAnImage) || errors.Is(err, utils.ErrNoFile) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Warn("Invalid file type")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid file type. Only images are allowed.",
			Code:  "INVALID_FILE",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Warn("Request timed out")
		return h.HandleRequestTimeout(c)
	}

	fields := h.fields(requestID, err, path, operation)
	traceID := log.TraceID(fields)
	h.logger.WithFields(fields).WithField("trace_id", traceID).Error("Unexpected error")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   err.Error(),
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: fiberUtils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
