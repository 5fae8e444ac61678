package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"centone-chat/internal/service"
)

// Handlers agrupa los handlers que monta el router.
type Handlers struct {
	Auth    *AuthHandler
	Chat    *ChatHandler
	Tasks   *TaskHandler
	Prompts *PromptHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, jwtSvc *service.JWTService, gatherer prometheus.Gatherer, h Handlers) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/auth", jsonContentTypeMiddleware())
	auth.POST("/anonymous", h.Auth.SignInAnonymous)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Los endpoints SSE, transcript y documento manejan su propio Content-Type.
	api := r.Group("", JWTAuthMiddleware(jwtSvc))
	api.GET("/sessions/stream", h.Chat.StreamSessions)
	api.GET("/sessions/:id/messages/stream", h.Chat.StreamMessages)
	api.GET("/sessions/:id/transcript", h.Chat.Transcript)
	api.GET("/tasks/stream", h.Tasks.Stream)
	api.POST("/chat/document", h.Chat.DocumentPrompt)

	jsonAPI := api.Group("", jsonContentTypeMiddleware())
	jsonAPI.GET("/sessions", h.Chat.ListSessions)
	jsonAPI.POST("/sessions/:id/rename", h.Chat.RenameSession)
	jsonAPI.GET("/sessions/:id/messages", h.Chat.ListMessages)
	jsonAPI.POST("/sessions/:id/tasks/extract", h.Chat.ExtractTasks)
	jsonAPI.DELETE("/sessions/:id", h.Chat.DeleteSession)
	jsonAPI.POST("/chat/send", h.Chat.Send)
	jsonAPI.GET("/performance", h.Chat.Performance)

	jsonAPI.GET("/tasks", h.Tasks.List)
	jsonAPI.POST("/tasks", h.Tasks.Create)
	jsonAPI.POST("/tasks/accept", h.Tasks.Accept)
	jsonAPI.POST("/tasks/:id/toggle", h.Tasks.Toggle)
	jsonAPI.DELETE("/tasks/:id", h.Tasks.Delete)

	jsonAPI.GET("/prompts", h.Prompts.List)
	jsonAPI.POST("/prompts", h.Prompts.Create)
	jsonAPI.DELETE("/prompts/:id", h.Prompts.Delete)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
