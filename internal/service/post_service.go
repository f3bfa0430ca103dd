package service

import (
	"context"
	"strings"

	"pulse/internal/aggregate"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID    string
	Content   string
	MediaURL  string
	MediaType string
}

type DeletePostInput struct {
	UserID string
	PostID string
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost")
	defer span.End()

	content := strings.TrimSpace(in.Content)
	mediaURL := strings.TrimSpace(in.MediaURL)
	if content == "" && mediaURL == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}
	mediaType := in.MediaType
	if mediaURL == "" {
		mediaType = ""
	}

	post := &models.Post{
		UserID:    in.UserID,
		Content:   content,
		MediaURL:  mediaURL,
		MediaType: mediaType,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	created, err := s.GetPost(ctx, post.ID, in.UserID)
	if err != nil {
		// the post is durable; serve what was written
		observability.Log(ctx).WithError(err).WithField("post_id", post.ID).
			Warn("post created but re-read failed")
		return post, nil
	}
	return created, nil
}

// GetPost returns one post annotated for viewerID.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	annotated, errs := aggregate.AnnotateOne(post, viewerID)
	logAggregationErrors(ctx, errs)
	return annotated, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.DeletePost")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, post); err != nil {
		span.SetError(err)
		return nil, err
	}
	return post, nil
}
