package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/database"
)

func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// respondError writes err as {"error": message}. Rule violations keep their message;
// anything else is logged and answered generically.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)

	if apperr.IsBusiness(err) {
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	logger.Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", status,
		"error", err,
	)

	message := "internal server error"
	if status == http.StatusBadGateway {
		message = "upstream service unavailable"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrListingUnavailable),
		errors.Is(err, apperr.ErrSelfPurchaseForbidden):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDependency), database.IsTimeout(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
