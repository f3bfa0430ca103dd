package service

import (
	"context"
	"strings"

	"pulse/internal/cache"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/realtime"
	"pulse/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	notifier    Notifier
	views       *cache.ViewStore
}

type CreateCommentInput struct {
	UserID  string
	PostID  string
	Content string
}

type DeleteCommentInput struct {
	UserID    string
	CommentID string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notifier Notifier,
	views *cache.ViewStore,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		notifier:    notifier,
		views:       views,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.CreateComment")
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Comment too long (max 5000 characters)")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:  in.UserID,
		PostID:  in.PostID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, err
	}

	_, nerr := s.notifier.CommentCreated(ctx, in.UserID, post)
	logDeliveryError(ctx, nerr, map[string]interface{}{"post_id": in.PostID, "comment_id": comment.ID})

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		// the comment is durable; serve what was written
		return comment, nil
	}
	return created, nil
}

// ListComments returns the comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID string) (ViewResult[[]*models.Comment], error) {
	return readView(ctx, s.views, realtime.ViewComments, viewerID, postID, []*models.Comment{}, func() ([]*models.Comment, error) {
		if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
			return nil, err
		}
		return s.commentRepo.ListByPost(ctx, postID)
	})
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.commentRepo.Delete(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
