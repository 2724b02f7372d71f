// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments (protected).
// The response carries the parent post's comments_count as committed by this
// write, so clients can render the new total without a follow-up read.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Body string `json:"body"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, count, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID: userID,
		PostID: postID,
		Body:   req.Body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, fiber.Map{
		"comment":        comment,
		"comments_count": count,
	})
}

// GetComments handles GET /api/posts/:id/comments (public)
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 20)
	comments, err := s.commentService.ListComments(ctx, postID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, comments)
}

// UpdateComment handles PUT /api/posts/:id/comments/:commentId (owner only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Body string `json:"body"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.commentService.UpdateComment(ctx, service.UpdateCommentInput{
		UserID:    userID,
		CommentID: commentID,
		Body:      req.Body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, updated)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId (owner only).
// Like creation, the response reports the post's comments_count after this
// delete committed.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	count, err := s.commentService.DeleteComment(ctx, service.DeleteCommentInput{
		UserID:    userID,
		CommentID: commentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"comments_count": count,
	})
}
