package engagement

import (
	"engagement-service/pkg/response"
	"net/http"
)

var (
	ErrDecodeFailure       = response.NewError(http.StatusBadRequest, "Failed to decode image")
	ErrVisionUnavailable   = response.NewError(http.StatusServiceUnavailable, "vision service unavailable")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)
