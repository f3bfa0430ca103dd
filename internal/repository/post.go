package repository

import (
	"context"
	"time"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// Posts returned by reads carry their author and their raw like and comment rows;
// counters are derived from those rows by the aggregation engine.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, userID string, limit int) ([]*models.Post, error)
	Delete(ctx context.Context, post *models.Post) error
	Like(ctx context.Context, userID, postID string) (bool, error)
	Unlike(ctx context.Context, userID, postID string) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	pub changefeed.Publisher
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB, pub changefeed.Publisher) PostRepository {
	return &postRepository{db: db, pub: pub, log: observability.NewRepoLogger("posts")}
}

func postChange(op string, post *models.Post) models.Change {
	return models.Change{
		Entity: models.EntityPosts,
		Op:     op,
		Fields: map[string]string{"id": post.ID, "user_id": post.UserID},
	}
}

func likeChange(op, userID, postID string) models.Change {
	return models.Change{
		Entity: models.EntityLikes,
		Op:     op,
		Fields: map[string]string{"post_id": postID, "user_id": userID},
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return translateError(ctx, r.log, "create", "Post", post.ID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": post.UserID})
	changefeed.PublishBestEffort(ctx, r.pub, postChange(models.OpInsert, post))
	return nil
}

// withDetails preloads the author and the fact rows the aggregation engine counts.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "post_id", "user_id")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "post_id", "user_id")
		})
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		return nil, translateError(ctx, r.log, "get", "Post", id, err)
	}
	return &post, nil
}

func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_recent", "posts")()

	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Order("created_at desc").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list_recent", "Post", nil, err)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list_by_author", "Post", nil, err)
	}
	return posts, nil
}

// Delete removes the post together with its likes and comments.
func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", post.ID).Error
	})
	if err != nil {
		return translateError(ctx, r.log, "delete", "Post", post.ID, err)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": post.ID})
	changefeed.PublishBestEffort(ctx, r.pub, postChange(models.OpDelete, post))
	return nil
}

// Like records the like and reports whether a new row was written. A repeated like
// is absorbed by the unique (user_id, post_id) index and reports false.
func (r *postRepository) Like(ctx context.Context, userID, postID string) (bool, error) {
	defer observability.TrackQuery("like", "likes")()

	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (id, user_id, post_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		uuid.NewString(), userID, postID, time.Now().UTC(),
	)
	if result.Error != nil {
		return false, translateError(ctx, r.log, "like", "Post", postID, result.Error)
	}
	created := result.RowsAffected > 0
	if created {
		changefeed.PublishBestEffort(ctx, r.pub, likeChange(models.OpInsert, userID, postID))
	}
	return created, nil
}

// Unlike removes the like and reports whether a row existed.
func (r *postRepository) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, translateError(ctx, r.log, "unlike", "Post", postID, result.Error)
	}
	removed := result.RowsAffected > 0
	if removed {
		changefeed.PublishBestEffort(ctx, r.pub, likeChange(models.OpDelete, userID, postID))
	}
	return removed, nil
}
