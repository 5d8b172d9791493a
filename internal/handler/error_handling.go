package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gamecontent-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func handleServiceError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
			models.NewErrorResponse(models.NewValidationError("request body is too large")))
		return
	}

	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.KindUnknown,
			Message: "An unexpected internal error occurred",
		})
		return
	}

	var statusCode int
	switch appErr.Kind {
	case models.KindValidation, models.KindInvalidRequest:
		statusCode = http.StatusBadRequest
	case models.KindNotFound:
		statusCode = http.StatusNotFound
	case models.KindRateLimit:
		statusCode = http.StatusTooManyRequests
	case models.KindTimeout:
		statusCode = http.StatusGatewayTimeout
	case models.KindTransientUnavailable:
		statusCode = http.StatusServiceUnavailable
	case models.KindInvalidCredential, models.KindUnknown:
		statusCode = http.StatusBadGateway
	case models.KindConfiguration:
		statusCode = http.StatusInternalServerError
	default:
		statusCode = http.StatusInternalServerError
	}

	if statusCode >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("kind", string(appErr.Kind)), zap.Error(err))
	}
	if appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}
	c.AbortWithStatusJSON(statusCode, models.NewErrorResponse(appErr))
}
