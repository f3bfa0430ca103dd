package repository

import (
	"context"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages the directed follow graph.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

type followRepository struct {
	db  *gorm.DB
	pub changefeed.Publisher
	log *observability.RepoLogger
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(db *gorm.DB, pub changefeed.Publisher) FollowRepository {
	return &followRepository{db: db, pub: pub, log: observability.NewRepoLogger("follows")}
}

func followChange(op, followerID, followeeID string) models.Change {
	return models.Change{
		Entity: models.EntityFollows,
		Op:     op,
		Fields: map[string]string{"follower_id": followerID, "followee_id": followeeID},
	}
}

// Follow creates the edge and reports whether it did not exist yet.
func (r *followRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	follow := &models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
			DoNothing: true,
		}).
		Create(follow)
	if result.Error != nil {
		return false, translateError(ctx, r.log, "follow", "Profile", followeeID, result.Error)
	}
	created := result.RowsAffected > 0
	if created {
		r.log.LogCreate(ctx, map[string]interface{}{"follower_id": followerID, "followee_id": followeeID})
		changefeed.PublishBestEffort(ctx, r.pub, followChange(models.OpInsert, followerID, followeeID))
	}
	return created, nil
}

// Unfollow removes the edge and reports whether it existed.
func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, translateError(ctx, r.log, "unfollow", "Profile", followeeID, result.Error)
	}
	removed := result.RowsAffected > 0
	if removed {
		changefeed.PublishBestEffort(ctx, r.pub, followChange(models.OpDelete, followerID, followeeID))
	}
	return removed, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, translateError(ctx, r.log, "is_following", "Profile", followeeID, err)
	}
	return count > 0, nil
}
