package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/NeRF-or-Nothing/go-user-server/internal/common"
	"github.com/NeRF-or-Nothing/go-user-server/internal/config"
	"github.com/NeRF-or-Nothing/go-user-server/internal/database"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
	"github.com/NeRF-or-Nothing/go-user-server/internal/services"
)

// ReadinessChecker reports whether the user store can serve requests.
type ReadinessChecker interface {
	Ready() bool
}

type WebServer struct {
	app         *fiber.App
	userService *services.UserService
	readiness   ReadinessChecker
	logger      *log.Logger
}

// NewWebServer creates the fiber app with its middleware and routes. A nil readiness checker means always ready.
func NewWebServer(cfg config.ServerConfig, userService *services.UserService, readiness ReadinessChecker, logger *log.Logger) *WebServer {
	s := &WebServer{
		userService: userService,
		readiness:   readiness,
		logger:      logger,
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use(s.requestLogger)
	s.app.Use(recover.New())
	// AllowHeaders is left empty so preflight echoes the requested headers
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigin,
	}))

	s.SetupRoutes()
	return s
}

func (s *WebServer) SetupRoutes() {
	s.app.Get("/health", s.healthCheck)

	s.app.Post("/api/users/register", s.requireDatabase, s.registerUser)
	s.app.Post("/api/users/login", s.requireDatabase, s.loginUser)
	s.app.Post("/api/users", s.requireDatabase, s.addUser)
	s.app.Get("/api/users", s.requireDatabase, s.listUsers)
	s.app.Get("/api/users/:id", s.requireDatabase, s.getUser)
	s.app.Put("/api/users/:id", s.requireDatabase, s.updateUser)
	s.app.Delete("/api/users/:id", s.requireDatabase, s.deleteUser)
}

// Run listens on addr until Shutdown is called.
func (s *WebServer) Run(addr string) error {
	s.logger.Infof("Server running on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *WebServer) ready() bool {
	return s.readiness == nil || s.readiness.Ready()
}

// requireDatabase answers 503 until the store connection is confirmed.
func (s *WebServer) requireDatabase(c *fiber.Ctx) error {
	if !s.ready() {
		return s.respondError(c, database.ErrNotReady)
	}
	return c.Next()
}

// requestLogger logs every request once the rest of the chain, including error rendering, has run.
func (s *WebServer) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			return herr
		}
	}
	s.logger.Infow("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start),
	)
	return nil
}

// errorHandler renders errors that escape a handler (unknown routes, panics) in the response envelope.
func (s *WebServer) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Errorf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(common.Failure(err.Error()))
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	database := "up"
	if !s.ready() {
		database = "down"
	}
	return c.Status(fiber.StatusOK).JSON(common.HealthResponse{Status: "ok", Database: database})
}
