// Package seed fills a database with demo profiles, posts and interactions.
// Interactions go through the services so notifications and change events come out
// exactly as they would in production.
package seed

import (
	"context"
	"fmt"
	"time"

	"pulse/internal/changefeed"
	"pulse/internal/fanout"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"
	"pulse/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Profiles    int
	Posts       int
	MaxLikes    int
	MaxComments int
	MaxFollows  int
	Messages    int
	// MaxDays spreads post timestamps over the past MaxDays days.
	MaxDays int
	// Seed makes the generated data reproducible when non-zero.
	Seed        int64
	ShouldClean bool
}

// DefaultOptions returns a small but connected data set.
func DefaultOptions() Options {
	return Options{
		Profiles:    25,
		Posts:       100,
		MaxLikes:    8,
		MaxComments: 4,
		MaxFollows:  6,
		Messages:    40,
		MaxDays:     30,
		ShouldClean: true,
	}
}

// Summary reports what a seeding run wrote.
type Summary struct {
	Profiles      int
	Posts         int
	Likes         int
	Comments      int
	Follows       int
	Messages      int
	Notifications int64
}

// Seeder writes demo data through the repositories and services.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	fake    *gofakeit.Faker

	likes    *service.LikeService
	comments *service.CommentService
	follows  *service.FollowService
	messages *service.MessageService
}

// NewSeeder creates a seeder whose writes are announced on pub. pub may be nil.
func NewSeeder(db *gorm.DB, pub changefeed.Publisher, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	fake := gofakeit.New(seed)

	postRepo := repository.NewPostRepository(db, pub)
	profileRepo := repository.NewProfileRepository(db)
	notifier := fanout.New(repository.NewNotificationRepository(db, pub), profileRepo)

	return &Seeder{
		db:       db,
		factory:  NewFactory(db, fake),
		fake:     fake,
		likes:    service.NewLikeService(postRepo, notifier),
		comments: service.NewCommentService(repository.NewCommentRepository(db, pub), postRepo, notifier, nil),
		follows:  service.NewFollowService(repository.NewFollowRepository(db, pub), profileRepo, notifier),
		messages: service.NewMessageService(repository.NewMessageRepository(db, pub), profileRepo, nil),
	}
}

// ClearAll removes every row the seeder can write, children first.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Notification{},
		&models.Message{},
		&models.Follow{},
		&models.Comment{},
		&models.Like{},
		&models.Post{},
		&models.Profile{},
	}
	for _, t := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	return nil
}

// Run seeds the database according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := observability.Log(ctx)
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	profiles, err := s.factory.CreateProfiles(opts.Profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to create profiles: %w", err)
	}
	if len(profiles) < 2 {
		return nil, fmt.Errorf("at least two profiles are needed, got %d", len(profiles))
	}
	log.WithField("count", len(profiles)).Info("profiles created")

	posts, err := s.factory.CreatePosts(profiles, opts.Posts, opts.MaxDays)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	log.WithField("count", len(posts)).Info("posts created")

	sum := &Summary{Profiles: len(profiles), Posts: len(posts)}

	for _, post := range posts {
		for _, p := range s.pick(profiles, opts.MaxLikes) {
			res, err := s.likes.Like(ctx, service.LikeInput{UserID: p.ID, PostID: post.ID})
			if err != nil {
				return nil, fmt.Errorf("like post %s: %w", post.ID, err)
			}
			if res.Liked {
				sum.Likes++
			}
		}
		for _, p := range s.pick(profiles, opts.MaxComments) {
			if _, err := s.comments.CreateComment(ctx, service.CreateCommentInput{
				UserID:  p.ID,
				PostID:  post.ID,
				Content: s.fake.Sentence(s.fake.Number(3, 12)),
			}); err != nil {
				return nil, fmt.Errorf("comment on post %s: %w", post.ID, err)
			}
			sum.Comments++
		}
	}
	log.WithField("likes", sum.Likes).WithField("comments", sum.Comments).Info("engagement created")

	for _, follower := range profiles {
		for _, followee := range s.pick(profiles, opts.MaxFollows) {
			if followee.ID == follower.ID {
				continue
			}
			res, err := s.follows.Follow(ctx, service.FollowInput{FollowerID: follower.ID, FolloweeID: followee.ID})
			if err != nil {
				return nil, fmt.Errorf("follow %s: %w", followee.ID, err)
			}
			if res.Following {
				sum.Follows++
			}
		}
	}

	for i := 0; i < opts.Messages; i++ {
		pair := s.pick(profiles, 2)
		if len(pair) < 2 {
			break
		}
		if _, err := s.messages.SendMessage(ctx, service.SendMessageInput{
			SenderID:   pair[0].ID,
			ReceiverID: pair[1].ID,
			Content:    s.fake.Sentence(s.fake.Number(2, 15)),
		}); err != nil {
			return nil, fmt.Errorf("send message: %w", err)
		}
		sum.Messages++
	}

	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Count(&sum.Notifications).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	log.WithField("notifications", sum.Notifications).Info("seeding finished")
	return sum, nil
}

// pick returns up to limit distinct profiles chosen at random. The count is itself
// randomized between 0 and limit when limit > 2.
func (s *Seeder) pick(profiles []*models.Profile, limit int) []*models.Profile {
	if limit <= 0 {
		return nil
	}
	n := limit
	if limit > 2 {
		n = s.fake.Number(0, limit)
	}
	if n > len(profiles) {
		n = len(profiles)
	}

	idx := make([]int, len(profiles))
	for i := range idx {
		idx[i] = i
	}
	s.fake.ShuffleInts(idx)

	out := make([]*models.Profile, 0, n)
	for _, i := range idx[:n] {
		out = append(out, profiles[i])
	}
	return out
}
