package server

import (
	"context"

	"pulse/internal/live"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var liveLog = observability.NewWSLogger("live endpoint")

// LiveUpgrade validates the requested view before the websocket upgrade so that bad
// requests get a plain HTTP error.
func (s *Server) LiveUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("Websocket upgrade required"))
	}
	if _, err := realtime.TopicsFor(c.Query("view"), middleware.UserID(c), c.Query("id")); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	c.Locals("view", c.Query("view"))
	c.Locals("subject", c.Query("id"))
	return c.Next()
}

// LiveHandler serves one live view per connection. The client receives
// {"type":"refresh"} whenever it should re-fetch the view over HTTP.
func (s *Server) LiveHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		view, _ := conn.Locals("view").(string)
		subject, _ := conn.Locals("subject").(string)

		client, err := s.hub.Register(userID, view, subject, conn)
		if err != nil {
			liveLog.LogError(context.Background(), userID, view, err, "register")
			_ = conn.WriteJSON(live.RefreshEvent{Type: "error", View: view, ID: subject})
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
