package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	engagementHandler "engagement-service/internal/api/engagement/handler"
	engagementService "engagement-service/internal/api/engagement/service"
	"engagement-service/internal/middleware"
	"engagement-service/pkg/redis"
	"engagement-service/pkg/utils"
	websocketPkg "engagement-service/pkg/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	vision       websocketPkg.IVision
	reportCache  redis.IReportCache
	handlers     []handler
	batchWorkers int
}

type handler interface {
	Start(srv fiber.Router)
}

// unversionedHandler also serves the /api paths browser clients already call.
type unversionedHandler interface {
	StartUnversioned(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.vision == nil {
		return nil, fmt.Errorf("vision client is required")
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.reportCache == nil {
		server.reportCache = redis.New(server.log)
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, server.utils)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithVisionClient(vision websocketPkg.IVision) ServerOption {
	return func(s *Server) error {
		s.vision = vision
		return nil
	}
}

func WithReportCache(cache redis.IReportCache) ServerOption {
	return func(s *Server) error {
		s.reportCache = cache
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.utils == nil {
			return fmt.Errorf("utils must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.utils)
		return nil
	}
}

// WithBatchWorkers bounds how many frames of one batch are scored at once.
// Zero reads BATCH_CONCURRENCY.
func WithBatchWorkers(n int) ServerOption {
	return func(s *Server) error {
		if n <= 0 {
			n, _ = strconv.Atoi(os.Getenv("BATCH_CONCURRENCY"))
		}
		if n <= 0 {
			n = 4
		}
		s.batchWorkers = n
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(newCORS())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	engagementServices := engagementService.NewEngagementService(s.log, s.vision, s.reportCache, s.utils, s.batchWorkers)
	engagementHandlers := engagementHandler.New(s.log, s.validator, s.middleware, engagementServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, engagementHandlers)
}

func (s *Server) mountHandlers() {
	router := s.engine.Group("/api/v1")
	unversioned := s.engine.Group("/api")
	for _, h := range s.handlers {
		h.Start(router)
		if u, ok := h.(unversionedHandler); ok {
			u.StartUnversioned(unversioned)
		}
	}
}

// newCORS allows CORS_ALLOW_ORIGINS (default any origin) to call the API
// from a browser.
func newCORS() fiber.Handler {
	origins := os.Getenv("CORS_ALLOW_ORIGINS")
	if origins == "" {
		origins = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, X-Request-ID",
		ExposeHeaders: "X-Request-ID",
	})
}

func (s *Server) Run() error {
	s.mountHandlers()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.vision.Close()
	return s.engine.ShutdownWithContext(ctx)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status": "ML Services Running",
		})
	})
}
