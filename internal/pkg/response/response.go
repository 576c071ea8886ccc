package response

import (
	"errors"
	"net/http"

	"hotelrides/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError maps domain errors to a status and envelope. Unknown errors are
// attached to the gin context so ErrorLogger records them.
func FromError(c *gin.Context, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	var conflict *domain.StateConflictError
	if errors.As(err, &conflict) {
		ErrorWithDetails(c, status, code, err.Error(), gin.H{
			"current_status":   conflict.Current,
			"requested_status": conflict.Requested,
		})
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		ErrorWithDetails(c, status, code, err.Error(), gin.H{verr.Field: verr.Reason})
		return
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	Error(c, status, code, msg)
}

// Classify returns the HTTP status and error code for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict, "INVALID_STATUS"
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "CONCURRENT_UPDATE"
	case errors.Is(err, domain.ErrQuoteExpired):
		return http.StatusGone, "QUOTE_EXPIRED"
	case errors.Is(err, domain.ErrSignatureVerification):
		return http.StatusUnauthorized, "INVALID_SIGNATURE"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, "RETRY_LATER"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
