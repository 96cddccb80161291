package handler

import (
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/pkg/serverutils"
	internalWS "docuchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationHandler upgrades authenticated clients to a websocket that
// receives document status events.
type NotificationHandler struct {
	hub    *internalWS.Hub
	auth   fiber.Handler
	logger logger.ILogger
}

func NewNotificationHandler(hub *internalWS.Hub, auth fiber.Handler, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		hub:    hub,
		auth:   auth,
		logger: log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.auth, h.ServeWs)
	r.Get("/notifications/status", h.auth, h.Status)
}

// ServeWs must run after the websocket auth middleware.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID := serverutils.CurrentUserId(c)
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(logger.ModuleHub, "Starting WebSocket session", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info(logger.ModuleHub, "WebSocket session ended", map[string]interface{}{"user_id": userID.String()})
	})(c)
}

// Status reports how many live connections the caller has on this instance.
func (h *NotificationHandler) Status(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Notification status", fiber.Map{
		"connected_clients": h.hub.ConnectedClients(serverutils.CurrentUserId(c)),
	}))
}
