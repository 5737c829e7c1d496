// Package server assembles the HTTP server around the conversation pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/plugin/llm"
	"github.com/parleyhq/parley/server/internal/observability"
	apiv1 "github.com/parleyhq/parley/server/router/api/v1"
	"github.com/parleyhq/parley/server/service/chat"
	"github.com/parleyhq/parley/store"
	"github.com/parleyhq/parley/store/cache"
)

// Server owns the echo instance and the pipeline services behind it.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	dispatcher *chat.Dispatcher
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer builds the pipeline over the given store and mounts the API.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	logger := slog.Default()

	if p.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: p.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("failed to connect shared session cache: %w", err)
		}
		st.EnableSharedCache(redisCache)
		logger.Info("shared session cache enabled", slog.String("addr", p.RedisAddr))
	}

	generator := llm.NewProvider(&llm.Config{
		BaseURL:    p.LLMBaseURL,
		APIKey:     p.LLMAPIKey,
		Model:      p.LLMModel,
		MaxRetries: p.LLMRetries,
	})

	registry := chat.NewRegistry(st)
	eventLog := chat.NewEventLog(st)
	metrics := observability.NewMetrics(0)
	dispatcher := chat.NewDispatcher(registry, eventLog, generator, metrics, logger, chat.DispatcherConfig{
		ContextWindow:     p.ContextWindow,
		MaxMessageLen:     p.MaxMessageLen,
		GenerationTimeout: p.LLMTimeout,
	})
	reader := chat.NewReader(registry, eventLog)

	echoServer := echo.New()
	echoServer.Debug = p.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":    "ok",
			"version":   p.Version,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	apiService := apiv1.NewAPIV1Service(p, dispatcher, reader, metrics, logger)
	apiService.RegisterRoutes(echoServer)

	return &Server{
		Profile:    p,
		Store:      st,
		echoServer: echoServer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Start begins serving. It returns once the listener is up or fails.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started",
		slog.String("address", address),
		slog.String("version", s.Profile.Version),
		slog.String("driver", s.Profile.Driver))

	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			s.logger.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown drains in-flight generation tasks, stops the listener, and closes
// the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	// Let detached replies land before the store goes away.
	done := make(chan struct{})
	go func() {
		s.dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with generation tasks still in flight")
	}

	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close database", slog.String("error", err.Error()))
	}

	s.logger.Info("server stopped",
		slog.Int64("messages_accepted", s.metrics.SendTotal()),
		slog.Int64("replies_generated", s.metrics.GenerationTotal()),
		slog.Int64("replies_failed", s.metrics.GenerationFailed()))
}
