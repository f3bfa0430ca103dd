package repository

import (
	"context"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	Delete(ctx context.Context, comment *models.Comment) error
}

type commentRepository struct {
	db  *gorm.DB
	pub changefeed.Publisher
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB, pub changefeed.Publisher) CommentRepository {
	return &commentRepository{db: db, pub: pub, log: observability.NewRepoLogger("comments")}
}

func commentChange(op string, c *models.Comment) models.Change {
	return models.Change{
		Entity: models.EntityComments,
		Op:     op,
		Fields: map[string]string{"id": c.ID, "post_id": c.PostID, "user_id": c.UserID},
	}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return translateError(ctx, r.log, "create", "Post", comment.PostID, err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": comment.PostID})
	changefeed.PublishBestEffort(ctx, r.pub, commentChange(models.OpInsert, comment))
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, "id = ?", id).Error; err != nil {
		return nil, translateError(ctx, r.log, "get", "Comment", id, err)
	}
	return &comment, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "list_by_post", "Post", postID, err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", comment.ID).Error; err != nil {
		return translateError(ctx, r.log, "delete", "Comment", comment.ID, err)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"comment_id": comment.ID})
	changefeed.PublishBestEffort(ctx, r.pub, commentChange(models.OpDelete, comment))
	return nil
}
