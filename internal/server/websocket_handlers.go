package server

import (
	"techatlas/internal/featureflags"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// AdminFeedHandler streams moderation events to moderators. RoleRequired
// runs first, so locals already carry the verified user id.
// @Summary Moderation live feed
// @Description WebSocket stream of created, updated, approved, rejected and deleted listings. Browsers pass the token as ?token=.
// @Tags admin
// @Security BearerAuth
// @Router /ws/admin [get]
func (s *Server) AdminFeedHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(localUserID).(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			s.logger.Warn("admin feed registration refused", zap.Uint("user_id", userID), zap.Error(err))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		s.logger.Debug("admin feed connected", zap.Uint("user_id", userID))

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(localUserID).(uint)
		if s.hub == nil || (s.featureFlags != nil && !s.featureFlags.Enabled(featureflags.AdminFeed, userID)) {
			return fiber.NewError(fiber.StatusNotFound, "admin feed is not enabled")
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.NewError(fiber.StatusUpgradeRequired, "websocket upgrade required")
		}
		return upgrade(c)
	}
}
