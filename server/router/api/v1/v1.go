// Package v1 exposes the conversation pipeline over a JSON HTTP API.
package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/server/internal/observability"
	"github.com/parleyhq/parley/server/middleware"
	"github.com/parleyhq/parley/server/service/chat"
)

// APIV1Service wires the pipeline services to their HTTP routes.
type APIV1Service struct {
	Profile    *profile.Profile
	Dispatcher *chat.Dispatcher
	Reader     *chat.Reader
	Metrics    *observability.Metrics

	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, dispatcher *chat.Dispatcher, reader *chat.Reader, metrics *observability.Metrics, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Profile:     p,
		Dispatcher:  dispatcher,
		Reader:      reader,
		Metrics:     metrics,
		logger:      logger,
		rateLimiter: middleware.NewRateLimiter(p.SendRatePerMinute, p.SendBurst),
	}
}

// RegisterRoutes mounts the API on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.Use(echomw.CORS())
	group.Use(s.authMiddleware)

	group.POST("/messages", s.sendMessage)
	group.GET("/messages/check", s.checkMessages)
	group.POST("/messages/regenerate", s.regenerateReply)
	group.GET("/history", s.getHistory)
	group.GET("/sessions", s.listSessions)
	group.GET("/metrics", s.getMetrics)
}
