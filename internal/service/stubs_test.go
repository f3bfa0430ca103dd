package service

import (
	"context"
	"sync"
	"testing"

	"pulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, string) (*models.Post, error)
	listRecentFn   func(context.Context, int) ([]*models.Post, error)
	listByAuthorFn func(context.Context, string, int) ([]*models.Post, error)
	deleteFn       func(context.Context, *models.Post) error
	likeFn         func(context.Context, string, string) (bool, error)
	unlikeFn       func(context.Context, string, string) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.listRecentFn(ctx, limit)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, userID, limit)
}
func (s *postRepoStub) Delete(ctx context.Context, post *models.Post) error {
	return s.deleteFn(ctx, post)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID string) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = "post-1"
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			return &models.Post{ID: id, UserID: "author"}, nil
		},
		listRecentFn:   func(_ context.Context, _ int) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(_ context.Context, _ string, _ int) ([]*models.Post, error) { return nil, nil },
		deleteFn:       func(_ context.Context, _ *models.Post) error { return nil },
		likeFn:         func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		unlikeFn:       func(_ context.Context, _, _ string) (bool, error) { return true, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, string) (*models.Comment, error)
	listByPostFn func(context.Context, string) ([]*models.Comment, error)
	deleteFn     func(context.Context, *models.Comment) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Delete(ctx context.Context, comment *models.Comment) error {
	return s.deleteFn(ctx, comment)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = "comment-1"
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn: func(_ context.Context, _ string) ([]*models.Comment, error) { return nil, nil },
		deleteFn:     func(_ context.Context, _ *models.Comment) error { return nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn      func(context.Context, string, string) (bool, error)
	unfollowFn    func(context.Context, string, string) (bool, error)
	isFollowingFn func(context.Context, string, string) (bool, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followeeID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:      func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		unfollowFn:    func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		isFollowingFn: func(_ context.Context, _, _ string) (bool, error) { return false, nil },
	}
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	getByIDFn  func(context.Context, string) (*models.Profile, error)
	getByIDsFn func(context.Context, []string) (map[string]*models.Profile, error)
	searchFn   func(context.Context, string, int) ([]*models.Profile, error)
	statsFn    func(context.Context, string, string) (*models.ProfileStats, error)
}

func (s *profileRepoStub) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.getByIDFn(ctx, id)
}
func (s *profileRepoStub) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *profileRepoStub) Search(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	return s.searchFn(ctx, query, limit)
}
func (s *profileRepoStub) Stats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	return s.statsFn(ctx, profileID, viewerID)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.Profile, error) {
			return &models.Profile{ID: id, Username: id}, nil
		},
		getByIDsFn: func(_ context.Context, ids []string) (map[string]*models.Profile, error) {
			out := make(map[string]*models.Profile, len(ids))
			for _, id := range ids {
				out[id] = &models.Profile{ID: id, Username: id}
			}
			return out, nil
		},
		searchFn: func(_ context.Context, _ string, _ int) ([]*models.Profile, error) { return nil, nil },
		statsFn: func(_ context.Context, _, _ string) (*models.ProfileStats, error) {
			return &models.ProfileStats{}, nil
		},
	}
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	createFn        func(context.Context, *models.Message) error
	listInvolvingFn func(context.Context, string) ([]*models.Message, error)
	listBetweenFn   func(context.Context, string, string) ([]*models.Message, error)
	markReadFn      func(context.Context, string, string) (int64, error)
}

func (s *messageRepoStub) Create(ctx context.Context, msg *models.Message) error {
	return s.createFn(ctx, msg)
}
func (s *messageRepoStub) ListInvolving(ctx context.Context, userID string) ([]*models.Message, error) {
	return s.listInvolvingFn(ctx, userID)
}
func (s *messageRepoStub) ListBetween(ctx context.Context, userID, counterpartyID string) ([]*models.Message, error) {
	return s.listBetweenFn(ctx, userID, counterpartyID)
}
func (s *messageRepoStub) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	return s.markReadFn(ctx, receiverID, senderID)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn:        func(_ context.Context, _ *models.Message) error { return nil },
		listInvolvingFn: func(_ context.Context, _ string) ([]*models.Message, error) { return nil, nil },
		listBetweenFn:   func(_ context.Context, _, _ string) ([]*models.Message, error) { return nil, nil },
		markReadFn:      func(_ context.Context, _, _ string) (int64, error) { return 0, nil },
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn           func(context.Context, *models.Notification) error
	listForRecipientFn func(context.Context, string, int) ([]*models.Notification, error)
	markAllReadFn      func(context.Context, string) (int64, error)
	countUnreadFn      func(context.Context, string) (int64, error)
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) ListForRecipient(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	return s.listForRecipientFn(ctx, userID, limit)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.markAllReadFn(ctx, userID)
}
func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.countUnreadFn(ctx, userID)
}

func noopNotificationRepo() *notificationRepoStub {
	return &notificationRepoStub{
		createFn:           func(_ context.Context, _ *models.Notification) error { return nil },
		listForRecipientFn: func(_ context.Context, _ string, _ int) ([]*models.Notification, error) { return nil, nil },
		markAllReadFn:      func(_ context.Context, _ string) (int64, error) { return 0, nil },
		countUnreadFn:      func(_ context.Context, _ string) (int64, error) { return 0, nil },
	}
}

// notifierStub records fan-out calls and can be told to fail.
type notifierStub struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *notifierStub) record(kind string) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	if n.err != nil {
		return nil, n.err
	}
	return &models.Notification{}, nil
}

func (n *notifierStub) LikeCreated(context.Context, string, *models.Post) (*models.Notification, error) {
	return n.record("like")
}
func (n *notifierStub) LikeRemoved(context.Context, string, *models.Post) (*models.Notification, error) {
	return n.record("unlike")
}
func (n *notifierStub) CommentCreated(context.Context, string, *models.Post) (*models.Notification, error) {
	return n.record("comment")
}
func (n *notifierStub) FollowCreated(context.Context, string, string) (*models.Notification, error) {
	return n.record("follow")
}

func (n *notifierStub) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func storeDown() error {
	return models.NewStoreError("read", assert.AnError)
}
