package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"
)

// Service defines the monitor API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app     *fiber.App
	server  *http.Server
	config  *Config
	checker *Checker
	cache   *SnapshotCache
	log     logrus.FieldLogger
}

// NewService creates the monitor HTTP API. The cache may be nil, in which
// case every request runs a fresh check.
func NewService(cfg *Config, checker *Checker, cache *SnapshotCache, log logrus.FieldLogger) Service {
	return &service{
		config:  cfg,
		checker: checker,
		cache:   cache,
		log:     log.WithField("service", "monitor-api"),
	}
}

// Start initializes and starts the monitor API server
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Monitor API is disabled")
		return nil
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "FareFlow Monitor",
	})

	setupMiddleware(s.app)

	s.app.Get("/healthz", s.handleHealthz)

	apiV1 := s.app.Group("/api/v1")
	apiV1.Get("/health", s.handleHealth)
	apiV1.Get("/report", s.handleReport)
	apiV1.Get("/anomalies", s.handleAnomalies)

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting monitor API server")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Monitor API server failed to start")
		}
	}()

	return nil
}

// Stop gracefully shuts down the monitor API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping monitor API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// snapshot returns a cached snapshot when fresh enough, otherwise runs
// the checks and refreshes the cache
func (s *service) snapshot(ctx context.Context) *Snapshot {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err != nil {
			s.log.WithError(err).Warn("Snapshot cache read failed")
		} else if cached != nil {
			return cached
		}
	}

	snapshot := s.checker.Check(ctx)

	if s.cache != nil {
		if err := s.cache.Set(ctx, &snapshot); err != nil {
			s.log.WithError(err).Warn("Snapshot cache write failed")
		}
	}

	return &snapshot
}

func (s *service) handleHealthz(c fiber.Ctx) error {
	snapshot := s.snapshot(c.Context())

	code := fiber.StatusOK
	if snapshot.Status == StateUnhealthy {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{"status": snapshot.Status})
}

func (s *service) handleHealth(c fiber.Ctx) error {
	return c.JSON(s.snapshot(c.Context()))
}

func (s *service) handleReport(c fiber.Ctx) error {
	report, err := RenderReport(s.snapshot(c.Context()))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.SendString(report)
}

func (s *service) handleAnomalies(c fiber.Ctx) error {
	snapshot := s.snapshot(c.Context())

	return c.JSON(fiber.Map{
		"generated_at": snapshot.GeneratedAt,
		"anomalies":    snapshot.Anomalies,
	})
}

// setupMiddleware configures global middleware for the Fiber app
func setupMiddleware(app *fiber.App) {
	// Recovery middleware catches panics
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Logger middleware for request logging
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS middleware for cross-origin requests
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))
}

// errorHandler provides consistent error responses
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if ok := errors.As(err, &fiberErr); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
