// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"agora/internal/models"
	"agora/internal/service"
	"agora/internal/viewer"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID: userID,
		Title:  req.Title,
		Body:   req.Body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)

	posts, err := s.postService.ListPosts(ctx, service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
		Sort:   c.Query("sort"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, posts)
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 10)

	posts, err := s.postService.SearchPosts(ctx, c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, posts)
}

// GetPost handles GET /api/posts/:id
//
// Reading a post counts as a view. The view is registered first and the post
// is read afterwards, so the rendered view_count always includes the caller's
// own visit. view_counted reports whether this request incremented the
// counter or was recognized as a repeat visit.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	key := s.viewerKey(c)
	count, counted, err := s.postService.RegisterView(ctx, id, key)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	post.ViewCount = count

	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"post":         post,
		"view_counted": counted,
	})
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userIDParam, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 20)
	posts, err := s.postService.GetUserPosts(ctx, userIDParam, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, posts)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID: userID,
		PostID: postID,
		Title:  req.Title,
		Body:   req.Body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(ctx, service.DeletePostInput{
		UserID: userID,
		PostID: postID,
	}); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// viewerKey derives the deduplication identity for the current request.
// Explicit X-Viewer-Key headers are only honored when the deployment trusts
// its callers (TRUST_VIEWER_KEY); otherwise the key falls back to the
// authenticated user or a fingerprint of the caller's origin.
func (s *Server) viewerKey(c *fiber.Ctx) string {
	explicit := ""
	if s.config.TrustViewerKey {
		explicit = c.Get("X-Viewer-Key")
	}
	return viewer.Resolve(explicit, currentUserID(c), c.IP(), c.Get("User-Agent"))
}
