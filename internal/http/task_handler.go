package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"centone-chat/internal/domain"
	"centone-chat/internal/service"
)

type TaskHandler struct {
	logger *zap.Logger
	tasks  *service.TaskService
}

func NewTaskHandler(logger *zap.Logger, tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{logger: logger, tasks: tasks}
}

// List maneja GET /tasks.
func (h *TaskHandler) List(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), owner)
	if err != nil {
		writeError(c, h.logger, "list tasks failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create maneja POST /tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req struct {
		Description string `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	task, err := h.tasks.Add(c.Request.Context(), owner, req.Description)
	if err != nil {
		writeError(c, h.logger, "create task failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// Accept maneja POST /tasks/accept con los candidatos extraidos.
func (h *TaskHandler) Accept(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req struct {
		Candidates []domain.TaskCandidate `json:"candidates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	created, err := h.tasks.AcceptCandidates(c.Request.Context(), owner, req.Candidates)
	if err != nil {
		writeError(c, h.logger, "accept tasks failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": created})
}

// Toggle maneja POST /tasks/:id/toggle.
func (h *TaskHandler) Toggle(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	task, err := h.tasks.Toggle(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "toggle task failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// Delete maneja DELETE /tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	if err := h.tasks.Remove(c.Request.Context(), owner, c.Param("id")); err != nil {
		writeError(c, h.logger, "delete task failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream maneja GET /tasks/stream (SSE).
func (h *TaskHandler) Stream(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	feed, err := h.tasks.Subscribe(c.Request.Context(), owner)
	if err != nil {
		writeError(c, h.logger, "subscribe tasks failed", err)
		return
	}
	defer feed.Close()
	streamSSE(c, "tasks", feed.Next)
}
