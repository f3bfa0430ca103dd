// Command seed populates the database with demo profiles and interactions.
package main

import (
	"context"
	"flag"

	"pulse/internal/cache"
	"pulse/internal/config"
	"pulse/internal/database"
	"pulse/internal/seed"
	"pulse/internal/server"

	log "github.com/sirupsen/logrus"
)

func main() {
	defaults := seed.DefaultOptions()
	profiles := flag.Int("profiles", defaults.Profiles, "Number of profiles to create")
	posts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	messages := flag.Int("messages", defaults.Messages, "Number of direct messages to send")
	seedValue := flag.Int64("seed", 0, "Random seed; 0 picks one")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	// Announce seeded writes on the configured feed so running servers refresh their views.
	feed, err := server.NewChangeFeed(ctx, cfg, cache.InitRedis(cfg.RedisURL))
	if err != nil {
		log.WithError(err).Warn("change feed unavailable, seeding without live updates")
		feed = server.LocalChangeFeed()
	}
	defer feed.Close()

	opts := defaults
	opts.Profiles = *profiles
	opts.Posts = *posts
	opts.Messages = *messages
	opts.Seed = *seedValue
	opts.ShouldClean = *shouldClean

	sum, err := seed.NewSeeder(db, feed.Publisher, opts.Seed).Run(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.WithFields(log.Fields{
		"profiles":      sum.Profiles,
		"posts":         sum.Posts,
		"likes":         sum.Likes,
		"comments":      sum.Comments,
		"follows":       sum.Follows,
		"messages":      sum.Messages,
		"notifications": sum.Notifications,
	}).Info("Database seeded")
}
