package http

import (
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"centone-chat/internal/domain"
	"centone-chat/internal/service"
)

// ChatHandler expone sesiones, mensajes, envío y extracción de tareas.
type ChatHandler struct {
	logger   *zap.Logger
	sessions *service.SessionService
	chat     *service.ChatService
	now      func() time.Time
}

func NewChatHandler(logger *zap.Logger, sessions *service.SessionService, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, sessions: sessions, chat: chat, now: time.Now}
}

// ListSessions maneja GET /sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	list, err := h.sessions.ListSessions(c.Request.Context(), owner)
	if err != nil {
		writeError(c, h.logger, "list sessions failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": list,
		"groups":   service.GroupSessionsByDate(list, h.now()),
	})
}

// StreamSessions maneja GET /sessions/stream (SSE).
func (h *ChatHandler) StreamSessions(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	feed, err := h.sessions.SubscribeSessions(c.Request.Context(), owner)
	if err != nil {
		writeError(c, h.logger, "subscribe sessions failed", err)
		return
	}
	defer feed.Close()
	streamSSE(c, "sessions", feed.Next)
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameSession maneja POST /sessions/:id/rename.
func (h *ChatHandler) RenameSession(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.sessions.RenameSession(c.Request.Context(), owner, c.Param("id"), req.Title); err != nil {
		writeError(c, h.logger, "rename session failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteSession maneja DELETE /sessions/:id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	if err := h.sessions.DeleteSession(c.Request.Context(), owner, c.Param("id")); err != nil {
		writeError(c, h.logger, "delete session failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages maneja GET /sessions/:id/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	msgs, err := h.sessions.ListMessages(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "list messages failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// StreamMessages maneja GET /sessions/:id/messages/stream (SSE).
func (h *ChatHandler) StreamMessages(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	feed, err := h.sessions.SubscribeMessages(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "subscribe messages failed", err)
		return
	}
	defer feed.Close()
	streamSSE(c, "messages", feed.Next)
}

// Transcript maneja GET /sessions/:id/transcript en texto plano.
func (h *ChatHandler) Transcript(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	msgs, err := h.sessions.ListMessages(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "transcript failed", err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.FormatTranscript(msgs)))
}

type sendRequest struct {
	SessionID    string   `json:"session_id"`
	Text         string   `json:"text" binding:"required"`
	Tone         string   `json:"tone"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature"`
	CodeMode     bool     `json:"code_mode"`
	CodeLanguage string   `json:"code_language"`
	WebSearch    bool     `json:"web_search"`
}

// Send maneja POST /chat/send. Un error del gateway no es un error HTTP:
// el turno queda persistido con el texto de error y se informa en gateway_error.
func (h *ChatHandler) Send(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	res, err := h.chat.Send(c.Request.Context(), service.SendInput{
		Owner:        owner,
		SessionID:    req.SessionID,
		Text:         req.Text,
		Tone:         domain.Tone(req.Tone),
		Model:        req.Model,
		Temperature:  req.Temperature,
		CodeMode:     req.CodeMode,
		CodeLanguage: req.CodeLanguage,
		WebSearch:    req.WebSearch,
	})
	if err != nil {
		writeError(c, h.logger, "send failed", err)
		return
	}
	body := gin.H{"result": res}
	if res.GatewayErr != nil {
		body["gateway_error"] = res.GatewayErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

const maxDocumentBytes = 1 << 20

// DocumentPrompt maneja POST /chat/document: recibe un documento text/plain y
// devuelve el input listo para enviar con /chat/send.
func (h *ChatHandler) DocumentPrompt(c *gin.Context) {
	if _, ok := ownerFrom(c); !ok {
		return
	}
	if mt, _, err := mime.ParseMediaType(c.ContentType()); err != nil || mt != "text/plain" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only text/plain documents are supported"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if len(body) > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": service.DocumentPrompt(string(body))})
}

type extractRequest struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

// ExtractTasks maneja POST /sessions/:id/tasks/extract.
func (h *ChatHandler) ExtractTasks(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req extractRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	out, err := h.chat.ExtractTasks(c.Request.Context(), owner, c.Param("id"), req.Model, req.Temperature)
	if err != nil {
		writeError(c, h.logger, "extract tasks failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Performance maneja GET /performance.
func (h *ChatHandler) Performance(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	sample, found := h.chat.LatestPerformance(owner)
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"latency":       domain.NotAvailable,
			"token_usage":   domain.NotAvailable,
			"model_version": domain.NotAvailable,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"latency":       sample.LatencyLabel(),
		"token_usage":   sample.TokenUsageLabel(),
		"model_version": sample.ModelVersion,
		"recorded_at":   sample.RecordedAt,
	})
}

// streamSSE emite un evento por cada emisión del feed hasta que el cliente se desconecta.
func streamSSE[T any](c *gin.Context, event string, next func(context.Context) ([]T, error)) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		items, err := next(ctx)
		if err != nil {
			return
		}
		c.SSEvent(event, items)
		c.Writer.Flush()
	}
}
