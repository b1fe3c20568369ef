package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/devphilip/clausewatch/internal/alerts"
	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/internal/sqlite"
)

// Server hosts the management HTTP API.
type Server struct {
	app        *fiber.App
	config     *config.Config
	sqlite     *sqlite.DB
	dispatcher *alerts.Dispatcher
	drafter    *core.MessageDrafter
	log        *slog.Logger
	version    string
}

// Options encapsulates server dependencies.
type Options struct {
	Config     *config.Config
	SQLite     *sqlite.DB
	Dispatcher *alerts.Dispatcher
	Drafter    *core.MessageDrafter
	Logger     *slog.Logger
	Version    string
}

// New constructs the HTTP server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		config:     opts.Config,
		sqlite:     opts.SQLite,
		dispatcher: opts.Dispatcher,
		drafter:    opts.Drafter,
		log:        opts.Logger.With("component", "server"),
		version:    opts.Version,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "clausewatch",
		ReadTimeout:           opts.Config.Server.HTTPServerTimeout,
		WriteTimeout:          opts.Config.Server.HTTPServerTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1")
	api.Get("/meta", s.handleGetMeta)

	api.Post("/users", s.handleCreateUser)
	api.Get("/users/:userID", s.handleGetUser)

	api.Post("/contracts", s.handleCreateContract)
	api.Get("/contracts/:contractID", s.handleGetContract)
	api.Get("/contracts/:contractID/audit", s.handleListContractAudit)

	api.Post("/contracts/:contractID/risks", s.handleRecordRiskFinding)
	api.Get("/contracts/:contractID/risks", s.handleListContractRisks)
	api.Get("/contracts/:contractID/alerts", s.handleListContractAlerts)

	api.Get("/alerts/due", s.handleListDueAlerts)
	api.Post("/alerts/dispatch", s.handleDispatchNow)
	api.Get("/alerts/:alertID", s.handleGetAlert)
}

// Start begins listening; it blocks until the listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.log.Info("starting HTTP server", "addr", addr)
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the listener, honoring the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return s.app.Shutdown()
	}
	return s.app.ShutdownWithTimeout(time.Until(deadline))
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("unhandled request error", "path", c.Path(), "error", err)
	}
	return SendError(c, code, err.Error())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": "ok", "version": s.version})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	metrics.WritePrometheus(c.Response().BodyWriter(), true)
	return nil
}
