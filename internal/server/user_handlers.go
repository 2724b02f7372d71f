// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me (protected)
func (s *Server) GetMe(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, user)
}

// GetMyProfile handles GET /api/users/me/profile (protected).
// A user who never saved a profile gets an empty one, not a 404.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	profile, err := s.userService.GetProfile(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, profile)
}

// UpdateMyProfile handles PUT /api/users/me/profile (protected)
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		Nickname string `json:"nickname"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:   userID,
		Nickname: req.Nickname,
		Email:    req.Email,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, profile)
}
