package server

import (
	"pulse/internal/models"
	"pulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications. Opening the inbox marks it read.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	res, err := s.notificationService.Inbox(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUnreadCount handles GET /api/notifications/unread
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	n, err := s.notificationService.UnreadCount(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	res, err := s.messageService.ListConversations(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetThread handles GET /api/conversations/:id, where id is the counterparty.
func (s *Server) GetThread(c *fiber.Ctx) error {
	counterpartyID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.messageService.OpenThread(c.UserContext(), viewerID(c), counterpartyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	receiverID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageService.SendMessage(c.UserContext(), service.SendMessageInput{
		SenderID:   viewerID(c),
		ReceiverID: receiverID,
		Content:    req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
