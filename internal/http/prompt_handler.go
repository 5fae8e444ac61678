package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"centone-chat/internal/service"
)

type PromptHandler struct {
	logger  *zap.Logger
	prompts *service.PromptService
}

func NewPromptHandler(logger *zap.Logger, prompts *service.PromptService) *PromptHandler {
	return &PromptHandler{logger: logger, prompts: prompts}
}

// List maneja GET /prompts: catálogo fijo más los prompts propios.
func (h *PromptHandler) List(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	custom, err := h.prompts.List(ctx, owner)
	if err != nil {
		writeError(c, h.logger, "list prompts failed", err)
		return
	}
	catalog, err := h.prompts.Catalog(ctx, owner)
	if err != nil {
		writeError(c, h.logger, "list prompts failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": catalog, "custom": custom})
}

// Create maneja POST /prompts.
func (h *PromptHandler) Create(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := h.prompts.Add(c.Request.Context(), owner, req.Text)
	if err != nil {
		writeError(c, h.logger, "create prompt failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prompt": p})
}

// Delete maneja DELETE /prompts/:id.
func (h *PromptHandler) Delete(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	if err := h.prompts.Remove(c.Request.Context(), owner, c.Param("id")); err != nil {
		writeError(c, h.logger, "delete prompt failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
