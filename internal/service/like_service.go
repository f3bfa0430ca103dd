package service

import (
	"context"

	"pulse/internal/aggregate"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type LikeService struct {
	postRepo repository.PostRepository
	notifier Notifier
}

type LikeInput struct {
	UserID string
	PostID string
}

// LikeResult is the post after the action, annotated for the actor.
type LikeResult struct {
	Post  *models.Post `json:"post"`
	Liked bool         `json:"liked"`
}

func NewLikeService(postRepo repository.PostRepository, notifier Notifier) *LikeService {
	return &LikeService{postRepo: postRepo, notifier: notifier}
}

// Like records a like. Liking twice is a no-op and notifies nobody.
func (s *LikeService) Like(ctx context.Context, in LikeInput) (*LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "LikeService.Like")
	defer span.End()
	span.AddAttributes(attribute.String("post_id", in.PostID))

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	created, err := s.postRepo.Like(ctx, in.UserID, in.PostID)
	if models.HasCode(err, models.CodeConstraintViolation) {
		// a concurrent like won the insert
		created, err = false, nil
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if created {
		_, nerr := s.notifier.LikeCreated(ctx, in.UserID, post)
		logDeliveryError(ctx, nerr, map[string]interface{}{"post_id": in.PostID, "user_id": in.UserID})
	}

	return s.result(ctx, in, post, true), nil
}

// Unlike removes a like. Notifications already emitted for it stay.
func (s *LikeService) Unlike(ctx context.Context, in LikeInput) (*LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "LikeService.Unlike")
	defer span.End()
	span.AddAttributes(attribute.String("post_id", in.PostID))

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	removed, err := s.postRepo.Unlike(ctx, in.UserID, in.PostID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if removed {
		_, nerr := s.notifier.LikeRemoved(ctx, in.UserID, post)
		logDeliveryError(ctx, nerr, map[string]interface{}{"post_id": in.PostID, "user_id": in.UserID})
	}

	return s.result(ctx, in, post, false), nil
}

// Toggle likes the post if the actor has not liked it yet and unlikes it otherwise.
func (s *LikeService) Toggle(ctx context.Context, in LikeInput) (*LikeResult, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	annotated, _ := aggregate.AnnotateOne(post, in.UserID)
	if annotated.IsLiked {
		return s.Unlike(ctx, in)
	}
	return s.Like(ctx, in)
}

// result re-reads the post after a committed write. When the re-read fails the
// pre-write post is served with IsLiked forced to the outcome; its counts may lag.
func (s *LikeService) result(ctx context.Context, in LikeInput, before *models.Post, liked bool) *LikeResult {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		observability.Log(ctx).WithError(err).WithField("post_id", in.PostID).
			Warn("like state committed but post re-read failed")
		post = before
	}
	annotated, errs := aggregate.AnnotateOne(post, in.UserID)
	logAggregationErrors(ctx, errs)
	if err != nil {
		annotated.IsLiked = liked
	}
	return &LikeResult{Post: annotated, Liked: annotated.IsLiked}
}
