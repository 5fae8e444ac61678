package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"centone-chat/internal/domain"
	"centone-chat/internal/llm"
	"centone-chat/internal/service"
)

// statusFor traduce errores de dominio/gateway a codigos HTTP.
func statusFor(err error) int {
	var endpointErr *llm.EndpointError
	var transportErr *llm.TransportError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIdentityUnavailable),
		errors.Is(err, service.ErrJWTInvalid),
		errors.Is(err, service.ErrJWTExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSendInProgress):
		return http.StatusConflict
	case errors.As(err, &endpointErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": msg})
			return
		}
	} else {
		logger.Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func ownerFrom(c *gin.Context) (domain.Owner, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrIdentityUnavailable.Error()})
		return domain.Owner{}, false
	}
	return claims.Owner(), true
}
