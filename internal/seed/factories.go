package seed

import (
	"fmt"
	"strings"
	"time"

	"pulse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	fake *gofakeit.Faker
}

// NewFactory creates a new Factory bound to db. fake drives every random choice.
func NewFactory(db *gorm.DB, fake *gofakeit.Faker) *Factory {
	return &Factory{db: db, fake: fake}
}

// BuildProfile constructs a profile without persisting it.
func (f *Factory) BuildProfile(overrides ...func(*models.Profile)) *models.Profile {
	p := &models.Profile{
		Username:  strings.ToLower(f.fake.Username()) + fmt.Sprintf("%d", f.fake.Number(100, 999)),
		FullName:  f.fake.Name(),
		Bio:       f.fake.Sentence(10),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.fake.UUID()),
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// CreateProfiles persists n profiles with distinct usernames.
func (f *Factory) CreateProfiles(n int) ([]*models.Profile, error) {
	seen := make(map[string]struct{}, n)
	profiles := make([]*models.Profile, 0, n)
	for len(profiles) < n {
		p := f.BuildProfile()
		if _, dup := seen[p.Username]; dup {
			continue
		}
		seen[p.Username] = struct{}{}
		profiles = append(profiles, p)
	}
	if len(profiles) == 0 {
		return profiles, nil
	}
	if err := f.db.Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// BuildPost constructs a post by author created at a random moment in the last maxDays days.
func (f *Factory) BuildPost(author *models.Profile, maxDays int, overrides ...func(*models.Post)) *models.Post {
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.fake.Number(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		UserID:    author.ID,
		Content:   f.fake.Paragraph(1, 3, 12, " "),
		CreatedAt: time.Now().Add(-back),
	}
	if f.fake.Number(0, 4) == 0 {
		post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.fake.UUID())
		post.MediaType = "image"
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePosts persists n posts spread round-robin over authors.
func (f *Factory) CreatePosts(authors []*models.Profile, n, maxDays int) ([]*models.Post, error) {
	if len(authors) == 0 || n <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, f.BuildPost(authors[i%len(authors)], maxDays))
	}
	if err := f.db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
