package engagementHandler

import (
	engagementService "engagement-service/internal/api/engagement/service"
	"engagement-service/internal/middleware"
	"engagement-service/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type EngagementHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	engagementService engagementService.IEngagementService
	utils             utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	es engagementService.IEngagementService,
	utils utils.IUtils,
) *EngagementHandler {
	return &EngagementHandler{
		engagementService: es,
		log:               log,
		validator:         validator,
		middleware:        middleware,
		utils:             utils,
	}
}

func (h *EngagementHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	engagement := srv.Group("/engagement")
	engagement.Post("/detect", h.Detect)
	engagement.Post("/batch-process", h.BatchProcess)
	engagement.Get("/health", h.Health)

	engagement.Use("/ws", wsMiddleware)
	engagement.Get("/ws", websocket.New(h.handleWebSocket))
}

// StartUnversioned mounts the scoring routes under the bare /api prefix.
func (h *EngagementHandler) StartUnversioned(srv fiber.Router) {
	srv.Post("/detect", h.Detect)
	srv.Post("/batch-process", h.BatchProcess)
}
