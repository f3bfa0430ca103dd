// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"pulse/internal/cache"
	"pulse/internal/config"
	"pulse/internal/database"
	"pulse/internal/fanout"
	"pulse/internal/live"
	"pulse/internal/middleware"
	"pulse/internal/observability"
	"pulse/internal/repository"
	"pulse/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	feed           *ChangeFeed
	hub            *live.Hub

	postService         *service.PostService
	likeService         *service.LikeService
	commentService      *service.CommentService
	followService       *service.FollowService
	messageService      *service.MessageService
	notificationService *service.NotificationService
	feedService         *service.FeedService
}

// NewServer connects to the database, Redis and the configured change feed.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	feed, err := NewChangeFeed(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient, feed), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; views then have no last-known fallback.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, feed *ChangeFeed) *Server {
	middleware.InitMiddleware(cfg)

	postRepo := repository.NewPostRepository(db, feed.Publisher)
	commentRepo := repository.NewCommentRepository(db, feed.Publisher)
	followRepo := repository.NewFollowRepository(db, feed.Publisher)
	notificationRepo := repository.NewNotificationRepository(db, feed.Publisher)
	messageRepo := repository.NewMessageRepository(db, feed.Publisher)
	profileRepo := repository.NewProfileRepository(db)

	notifier := fanout.New(notificationRepo, profileRepo)

	var views *cache.ViewStore
	if redisClient != nil {
		views = cache.NewViewStore(time.Duration(cfg.ViewCacheTTLSeconds) * time.Second)
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("pulse-api"),
		feed:           feed,
		hub:            live.NewHub(feed.Relay),

		postService:         service.NewPostService(postRepo),
		likeService:         service.NewLikeService(postRepo, notifier),
		commentService:      service.NewCommentService(commentRepo, postRepo, notifier, views),
		followService:       service.NewFollowService(followRepo, profileRepo, notifier),
		messageService:      service.NewMessageService(messageRepo, profileRepo, views),
		notificationService: service.NewNotificationService(notificationRepo, views, cfg.NotificationsLimit),
		feedService: service.NewFeedService(postRepo, profileRepo, views, service.FeedLimits{
			Feed:           cfg.FeedLimit,
			TrendingWindow: cfg.TrendingWindow,
			TrendingTopK:   cfg.TrendingTopK,
		}),
	}
}

// App builds the fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = fiber.New(fiber.Config{
			AppName:               "pulse",
			DisableStartupMessage: true,
		})
		s.SetupMiddleware(s.app)
		s.SetupRoutes(s.app)
	}
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Live views authenticate from the query string
	api.Get("/live", middleware.WebSocketAuthRequired, s.LiveUpgrade, s.LiveHandler())

	protected := api.Group("", middleware.AuthRequired)

	protected.Get("/feed", s.GetFeed)
	protected.Get("/trending", s.GetTrending)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/like/toggle", s.ToggleLike)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	protected.Delete("/comments/:id", s.DeleteComment)

	users := protected.Group("/users")
	users.Get("/search", s.SearchUsers)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/stats", s.GetUserStats)
	users.Post("/:id/follow/toggle", s.ToggleFollow)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)

	notifications := protected.Group("/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Get("/unread", s.GetUnreadCount)

	conversations := protected.Group("/conversations")
	conversations.Get("/", s.GetConversations)
	conversations.Get("/:id", s.GetThread)
	conversations.Post("/:id/messages", s.SendMessage)
}

// HealthCheck reports database and Redis reachability.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database":    dbStatus,
			"redis":       redisStatus,
			"change_feed": s.config.ChangeFeed,
			"live_relay":  s.feed.Relay.Running(),
		},
		"time": time.Now(),
	})
}

// Run serves on the configured port until quit fires, then shuts down gracefully.
func (s *Server) Run(quit <-chan os.Signal) error {
	app := s.App()

	errCh := make(chan error, 1)
	go func() {
		observability.GlobalLogger.WithField("port", s.config.Port).Info("server starting")
		errCh <- app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown closes live views, the HTTP listener, the change feed and the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.hub.Shutdown(ctx); err != nil {
		observability.Log(ctx).WithError(err).Warn("live hub shutdown failed")
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Log(ctx).WithError(err).Warn("http shutdown failed")
		}
	}
	s.feed.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	observability.Log(ctx).Info("server stopped")
	return nil
}
