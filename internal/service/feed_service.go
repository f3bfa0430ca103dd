package service

import (
	"context"
	"strings"

	"pulse/internal/aggregate"
	"pulse/internal/cache"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/realtime"
	"pulse/internal/repository"
	"pulse/internal/trending"
)

const searchLimit = 20

// FeedLimits bounds the post windows read by the feed views.
type FeedLimits struct {
	Feed           int
	TrendingWindow int
	TrendingTopK   int
}

type FeedService struct {
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
	views       *cache.ViewStore
	limits      FeedLimits
}

func NewFeedService(
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
	views *cache.ViewStore,
	limits FeedLimits,
) *FeedService {
	return &FeedService{
		postRepo:    postRepo,
		profileRepo: profileRepo,
		views:       views,
		limits:      limits,
	}
}

func (s *FeedService) annotate(ctx context.Context, posts []*models.Post, viewerID string) []*models.Post {
	annotated, errs := aggregate.Annotate(posts, viewerID)
	logAggregationErrors(ctx, errs)
	return annotated
}

// Feed returns the most recent posts annotated for the viewer.
func (s *FeedService) Feed(ctx context.Context, viewerID string) (ViewResult[[]*models.Post], error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.Feed")
	defer span.End()

	return readView(ctx, s.views, realtime.ViewFeed, viewerID, "", []*models.Post{}, func() ([]*models.Post, error) {
		posts, err := s.postRepo.ListRecent(ctx, s.limits.Feed)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		return s.annotate(ctx, posts, viewerID), nil
	})
}

// Trending ranks the recent window of posts by likes plus comments.
func (s *FeedService) Trending(ctx context.Context, viewerID string) (ViewResult[[]*models.Post], error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.Trending")
	defer span.End()

	return readView(ctx, s.views, realtime.ViewTrending, viewerID, "", []*models.Post{}, func() ([]*models.Post, error) {
		posts, err := s.postRepo.ListRecent(ctx, s.limits.TrendingWindow)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		return trending.Rank(s.annotate(ctx, posts, viewerID), s.limits.TrendingTopK), nil
	})
}

// ProfilePosts returns the posts of profileID, newest first.
func (s *FeedService) ProfilePosts(ctx context.Context, profileID, viewerID string) (ViewResult[[]*models.Post], error) {
	return readView(ctx, s.views, realtime.ViewProfile, viewerID, profileID, []*models.Post{}, func() ([]*models.Post, error) {
		if _, err := s.profileRepo.GetByID(ctx, profileID); err != nil {
			return nil, err
		}
		posts, err := s.postRepo.ListByAuthor(ctx, profileID, s.limits.Feed)
		if err != nil {
			return nil, err
		}
		return s.annotate(ctx, posts, viewerID), nil
	})
}

func (s *FeedService) Stats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	if _, err := s.profileRepo.GetByID(ctx, profileID); err != nil {
		return nil, err
	}
	return s.profileRepo.Stats(ctx, profileID, viewerID)
}

func (s *FeedService) SearchProfiles(ctx context.Context, query string) ([]*models.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.profileRepo.Search(ctx, query, searchLimit)
}
