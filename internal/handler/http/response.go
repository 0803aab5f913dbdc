package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
)

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// respondError converts a service error into the API's error body. Expected
// failures surface their own message; anything unclassified is logged in full
// and reported as a generic internal error.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	message := err.Error()

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.HTTPStatus, errorResponse{Error: errorDetail{
			Code:       appErr.Code,
			Message:    appErr.Message,
			HTTPStatus: appErr.HTTPStatus,
		}})
		return
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: errorDetail{
		Code:       domainErrors.Code(err),
		Message:    message,
		HTTPStatus: status,
	}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case domainErrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case domainErrors.IsValidation(err):
		return http.StatusBadRequest
	case domainErrors.IsNotFound(err):
		return http.StatusNotFound
	case domainErrors.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
