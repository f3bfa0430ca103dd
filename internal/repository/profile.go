// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"strings"

	"pulse/internal/cache"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// ProfileRepository reads the identities that own posts, reactions and messages.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Profile, error)
	Stats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error)
}

type profileRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, log: observability.NewRepoLogger("profiles")}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		return r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	})
	if err != nil {
		return nil, translateError(ctx, r.log, "get", "Profile", id, err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, translateError(ctx, r.log, "get_many", "Profile", ids, err)
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// Search matches username or full name, case-insensitively.
func (r *profileRepository) Search(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	var profiles []*models.Profile
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username asc").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, translateError(ctx, r.log, "search", "Profile", query, err)
	}
	r.log.LogRead(ctx, map[string]interface{}{"query": query, "count": len(profiles)})
	return profiles, nil
}

func (r *profileRepository) Stats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	var stats models.ProfileStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Follow{}).Where("followee_id = ?", profileID).Count(&stats.Followers).Error; err != nil {
		return nil, translateError(ctx, r.log, "stats", "Profile", profileID, err)
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", profileID).Count(&stats.Following).Error; err != nil {
		return nil, translateError(ctx, r.log, "stats", "Profile", profileID, err)
	}
	if err := db.Model(&models.Post{}).Where("user_id = ?", profileID).Count(&stats.Posts).Error; err != nil {
		return nil, translateError(ctx, r.log, "stats", "Profile", profileID, err)
	}

	if viewerID != "" && viewerID != profileID {
		var n int64
		err := db.Model(&models.Follow{}).
			Where("follower_id = ? AND followee_id = ?", viewerID, profileID).
			Count(&n).Error
		if err != nil {
			return nil, translateError(ctx, r.log, "stats", "Profile", profileID, err)
		}
		stats.IsFollowing = n > 0
	}

	return &stats, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
