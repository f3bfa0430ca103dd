package server

import (
	"pulse/internal/models"
	"pulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content   string `json:"content"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

type contentRequest struct {
	Content string `json:"content"`
}

// GetFeed handles GET /api/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	res, err := s.feedService.Feed(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetTrending handles GET /api/trending
func (s *Server) GetTrending(c *fiber.Ctx) error {
	res, err := s.feedService.Trending(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:    viewerID(c),
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), postID, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: viewerID(c),
		PostID: postID,
	}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) likeAction(c *fiber.Ctx, action func(*fiber.Ctx, service.LikeInput) (*service.LikeResult, error)) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := action(c, service.LikeInput{UserID: viewerID(c), PostID: postID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.likeAction(c, func(c *fiber.Ctx, in service.LikeInput) (*service.LikeResult, error) {
		return s.likeService.Like(c.UserContext(), in)
	})
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.likeAction(c, func(c *fiber.Ctx, in service.LikeInput) (*service.LikeResult, error) {
		return s.likeService.Unlike(c.UserContext(), in)
	})
}

// ToggleLike handles POST /api/posts/:id/like/toggle
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	return s.likeAction(c, func(c *fiber.Ctx, in service.LikeInput) (*service.LikeResult, error) {
		return s.likeService.Toggle(c.UserContext(), in)
	})
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.commentService.ListComments(c.UserContext(), postID, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  viewerID(c),
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    viewerID(c),
		CommentID: commentID,
	}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
