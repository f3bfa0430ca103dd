package service

import (
	"context"

	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"
)

type FollowService struct {
	followRepo  repository.FollowRepository
	profileRepo repository.ProfileRepository
	notifier    Notifier
}

type FollowInput struct {
	FollowerID string
	FolloweeID string
}

// FollowResult reports the follow state after the action and the followee's stats.
type FollowResult struct {
	Following bool                 `json:"following"`
	Stats     *models.ProfileStats `json:"stats"`
}

func NewFollowService(
	followRepo repository.FollowRepository,
	profileRepo repository.ProfileRepository,
	notifier Notifier,
) *FollowService {
	return &FollowService{
		followRepo:  followRepo,
		profileRepo: profileRepo,
		notifier:    notifier,
	}
}

func (s *FollowService) validate(ctx context.Context, in FollowInput) error {
	if in.FollowerID == in.FolloweeID {
		return models.NewValidationError("You cannot follow yourself")
	}
	_, err := s.profileRepo.GetByID(ctx, in.FolloweeID)
	return err
}

// Follow creates the follow edge. Following twice is a no-op and notifies nobody.
func (s *FollowService) Follow(ctx context.Context, in FollowInput) (*FollowResult, error) {
	span, ctx := observability.NewSpan(ctx, "FollowService.Follow")
	defer span.End()

	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	created, err := s.followRepo.Follow(ctx, in.FollowerID, in.FolloweeID)
	if models.HasCode(err, models.CodeConstraintViolation) {
		// a concurrent follow won the insert
		created, err = false, nil
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if created {
		_, nerr := s.notifier.FollowCreated(ctx, in.FollowerID, in.FolloweeID)
		logDeliveryError(ctx, nerr, map[string]interface{}{"follower_id": in.FollowerID, "followee_id": in.FolloweeID})
	}

	return s.result(ctx, in, true), nil
}

func (s *FollowService) Unfollow(ctx context.Context, in FollowInput) (*FollowResult, error) {
	span, ctx := observability.NewSpan(ctx, "FollowService.Unfollow")
	defer span.End()

	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	if _, err := s.followRepo.Unfollow(ctx, in.FollowerID, in.FolloweeID); err != nil {
		span.SetError(err)
		return nil, err
	}
	return s.result(ctx, in, false), nil
}

// Toggle follows if the edge does not exist and unfollows otherwise.
func (s *FollowService) Toggle(ctx context.Context, in FollowInput) (*FollowResult, error) {
	following, err := s.followRepo.IsFollowing(ctx, in.FollowerID, in.FolloweeID)
	if err != nil {
		return nil, err
	}
	if following {
		return s.Unfollow(ctx, in)
	}
	return s.Follow(ctx, in)
}

// result reads the followee's stats after a committed write. Stats are omitted
// when that read fails; Following then reports the action's outcome.
func (s *FollowService) result(ctx context.Context, in FollowInput, following bool) *FollowResult {
	stats, err := s.profileRepo.Stats(ctx, in.FolloweeID, in.FollowerID)
	if err != nil {
		observability.Log(ctx).WithError(err).WithField("followee_id", in.FolloweeID).
			Warn("follow state committed but stats read failed")
		return &FollowResult{Following: following}
	}
	return &FollowResult{Following: stats.IsFollowing, Stats: stats}
}
