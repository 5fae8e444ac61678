package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"centone-chat/internal/service"
)

// AuthHandler expone el inicio de sesión anónimo y la rotación de tokens.
type AuthHandler struct {
	logger *zap.Logger
	jwt    *service.JWTService
	appID  string
}

func NewAuthHandler(logger *zap.Logger, jwt *service.JWTService, appID string) *AuthHandler {
	return &AuthHandler{logger: logger, jwt: jwt, appID: appID}
}

// SignInAnonymous maneja POST /auth/anonymous.
func (h *AuthHandler) SignInAnonymous(c *gin.Context) {
	pair, err := h.jwt.SignInAnonymous(c.Request.Context(), h.appID)
	if err != nil {
		writeError(c, h.logger, "anonymous sign in failed", err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	pair, err := h.jwt.RefreshPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, "refresh failed", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.jwt.RevokeRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, "logout failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
