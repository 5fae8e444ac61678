package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"centone-chat/internal/config"
	"centone-chat/internal/db"
	"centone-chat/internal/docstore"
	apihttp "centone-chat/internal/http"
	"centone-chat/internal/llm"
	"centone-chat/internal/repository"
	"centone-chat/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	g, ctx := errgroup.WithContext(ctx)

	var store docstore.Store
	if cfg.UsesMemoryStore() {
		logger.Warn("DATABASE_URL not set, using in-memory document store")
		store = docstore.NewMemory()
	} else {
		pool, pgStore, err := db.OpenDocumentStore(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("document store", zap.Error(err))
		}
		defer pool.Close()
		store = pgStore
		g.Go(func() error { return pgStore.Listen(ctx) })
	}

	var (
		tokenStore service.RefreshTokenStore
		sendGuard  service.SendGuard = service.NewMemorySendGuard()
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			sendGuard = service.NewRedisSendGuard(redisClient, cfg.SendGuardTTL(), logger)
		}
		cancel()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gateway := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout(), logger, llm.WithMetrics(llm.MustNewMetrics(registry)))

	perf, err := service.NewPerformanceTracker(cfg.PerformanceCacheSize)
	if err != nil {
		logger.Fatal("performance tracker", zap.Error(err))
	}

	sessionSvc := service.NewSessionService(repository.NewDocSessionRepository(store), repository.NewDocMessageRepository(store))
	taskSvc := service.NewTaskService(repository.NewDocTaskRepository(store))
	promptSvc := service.NewPromptService(repository.NewDocPromptRepository(store))
	chatSvc := service.NewChatService(sessionSvc, taskSvc, gateway, sendGuard, perf, logger, service.ChatDefaults{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
	})

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	router := apihttp.NewRouter(logger, jwtSvc, registry, apihttp.Handlers{
		Auth:    apihttp.NewAuthHandler(logger, jwtSvc, cfg.AppID),
		Chat:    apihttp.NewChatHandler(logger, sessionSvc, chatSvc),
		Tasks:   apihttp.NewTaskHandler(logger, taskSvc),
		Prompts: apihttp.NewPromptHandler(logger, promptSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
