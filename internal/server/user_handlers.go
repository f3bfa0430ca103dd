package server

import (
	"pulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users/search?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	profiles, err := s.feedService.SearchProfiles(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profiles)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	profileID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.feedService.ProfilePosts(c.UserContext(), profileID, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUserStats handles GET /api/users/:id/stats
func (s *Server) GetUserStats(c *fiber.Ctx) error {
	profileID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	stats, err := s.feedService.Stats(c.UserContext(), profileID, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (s *Server) followAction(c *fiber.Ctx, action func(*fiber.Ctx, service.FollowInput) (*service.FollowResult, error)) error {
	followeeID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := action(c, service.FollowInput{FollowerID: viewerID(c), FolloweeID: followeeID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	return s.followAction(c, func(c *fiber.Ctx, in service.FollowInput) (*service.FollowResult, error) {
		return s.followService.Follow(c.UserContext(), in)
	})
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	return s.followAction(c, func(c *fiber.Ctx, in service.FollowInput) (*service.FollowResult, error) {
		return s.followService.Unfollow(c.UserContext(), in)
	})
}

// ToggleFollow handles POST /api/users/:id/follow/toggle
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	return s.followAction(c, func(c *fiber.Ctx, in service.FollowInput) (*service.FollowResult, error) {
		return s.followService.Toggle(c.UserContext(), in)
	})
}
