package service

import (
	"context"
	"strings"

	"pulse/internal/cache"
	"pulse/internal/conversation"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/realtime"
	"pulse/internal/repository"
)

type MessageService struct {
	messageRepo repository.MessageRepository
	profileRepo repository.ProfileRepository
	views       *cache.ViewStore
}

type SendMessageInput struct {
	SenderID   string
	ReceiverID string
	Content    string
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	profileRepo repository.ProfileRepository,
	views *cache.ViewStore,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		views:       views,
	}
}

func (s *MessageService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	span, ctx := observability.NewSpan(ctx, "MessageService.SendMessage")
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Message too long (max 5000 characters)")
	}
	if in.SenderID == in.ReceiverID {
		return nil, models.NewValidationError("You cannot message yourself")
	}
	if _, err := s.profileRepo.GetByID(ctx, in.ReceiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		span.SetError(err)
		return nil, err
	}
	return msg, nil
}

// ListConversations returns the viewer's conversations, most recent first.
// Listing does not change read state.
func (s *MessageService) ListConversations(ctx context.Context, viewerID string) (ViewResult[[]conversation.Conversation], error) {
	return readView(ctx, s.views, realtime.ViewConversations, viewerID, "", []conversation.Conversation{}, func() ([]conversation.Conversation, error) {
		messages, err := s.messageRepo.ListInvolving(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		profiles, err := s.profileRepo.GetByIDs(ctx, conversation.Counterparties(viewerID, messages))
		if err != nil {
			return nil, err
		}
		return conversation.Assemble(viewerID, messages, profiles), nil
	})
}

// OpenThread returns the thread with counterpartyID in chronological order and marks
// the messages the counterparty sent to the viewer as read.
func (s *MessageService) OpenThread(ctx context.Context, viewerID, counterpartyID string) (ViewResult[[]*models.Message], error) {
	if viewerID == counterpartyID {
		return ViewResult[[]*models.Message]{}, models.NewValidationError("You cannot open a thread with yourself")
	}
	return readView(ctx, s.views, realtime.ViewThread, viewerID, counterpartyID, []*models.Message{}, func() ([]*models.Message, error) {
		messages, err := s.messageRepo.ListBetween(ctx, viewerID, counterpartyID)
		if err != nil {
			return nil, err
		}
		thread := conversation.Thread(viewerID, counterpartyID, messages)

		if _, err := s.messageRepo.MarkRead(ctx, viewerID, counterpartyID); err != nil {
			observability.Log(ctx).WithError(err).WithField("counterparty_id", counterpartyID).Warn("failed to mark thread read")
			return thread, nil
		}
		for _, m := range thread {
			if m.SenderID == counterpartyID && m.ReceiverID == viewerID {
				m.IsRead = true
			}
		}
		return thread, nil
	})
}
