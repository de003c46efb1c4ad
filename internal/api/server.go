package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"seatdesk/internal/config"
	"seatdesk/internal/external"
	"seatdesk/internal/handlers"
	"seatdesk/internal/identity"
	"seatdesk/internal/logger"
	"seatdesk/internal/messaging"
	"seatdesk/internal/metrics"
	"seatdesk/internal/middleware"
	"seatdesk/internal/shell"

	"github.com/gin-gonic/gin"
)

// Server представляет HTTP сервер shell
type Server struct {
	router   *gin.Engine
	config   *config.Config
	identity identity.Backend
	metrics  *metrics.Metrics
	shell    *shell.App
}

// NewServer создает сервер со всеми зависимостями
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Открываем хранилище идентификатора гостя
	backend, err := identity.Open(ctx, cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity store: %w", err)
	}

	// Подключаемся к NATS
	publisher, err := messaging.NewPublisher(cfg.NATS)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	m := metrics.New()

	app := shell.New(shell.Deps{
		API:         external.NewBookingClient(cfg.API),
		Credentials: identity.NewCredentialStore(backend),
		EventID:     cfg.EventID,
		CheckExpiry: cfg.SessionExpiryCheck,
		Logger:      slog.Default(),
		Metrics:     m,
		Publisher:   publisher,
	})

	return NewServerWithShell(cfg, app, backend, m), nil
}

// NewServerWithShell собирает роутер вокруг готового shell
func NewServerWithShell(cfg *config.Config, app *shell.App, backend identity.Backend, m *metrics.Metrics) *Server {
	router := gin.New()

	// Применяем middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		identity: backend,
		metrics:  m,
		shell:    app,
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает все роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.shell)

	api := s.router.Group("/api")
	{
		api.GET("/view", h.GetView)

		seats := api.Group("/seats")
		{
			seats.POST("/:seatId/toggle", h.ToggleSeat)
		}

		api.DELETE("/selection", h.ClearSelection)
		api.POST("/bookings/submit", h.SubmitBooking)
		api.POST("/session/reset", h.ResetSession)
	}

	s.router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	code, status := http.StatusOK, "ok"
	identityStatus := "ok"

	if s.identity != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.identity.Ping(ctx); err != nil {
			logger.WithContext(c.Request.Context()).Error("Identity store health check failed", "error", err)
			code, status = http.StatusServiceUnavailable, "degraded"
			identityStatus = "unavailable"
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "seatdesk-shell",
		"version":  "1.0.0",
		"event_id": s.shell.EventID(),
		"identity": identityStatus,
	})
}

// Start поднимает сессию и загружает данные события
func (s *Server) Start(ctx context.Context) {
	if err := s.shell.Start(ctx); err != nil {
		slog.Warn("Shell started with errors", "error", err)
	}
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if err := s.shell.Close(); err != nil {
		slog.Error("Error closing NATS connection", "error", err)
	}

	if s.identity != nil {
		if err := s.identity.Close(); err != nil {
			slog.Error("Error closing identity store", "error", err)
			return err
		}
	}

	return nil
}
