// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"strconv"
	"time"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewStorageError(err))
	}

	user := &models.User{
		Username: req.Username,
		Password: string(hashedPassword),
	}
	// A duplicate username surfaces as a CONFLICT from the repository; the
	// racing insert and the pre-check collapse into one code path.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.openSession(c, user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewStorageError(err))
	}

	return models.Respond(c, fiber.StatusCreated, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return respondServiceError(c, err)
	}
	// Unknown user and wrong password return the same message; the response
	// must not reveal which usernames exist.
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid username or password"))
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid username or password"))
	}

	token, err := s.openSession(c, user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewStorageError(err))
	}

	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout (protected).
// Revoking the server-side session invalidates every copy of the token
// immediately, regardless of its embedded expiry.
func (s *Server) Logout(c *fiber.Ctx) error {
	sid, _ := c.Locals("sessionID").(string)
	if sid != "" {
		if err := s.sessions.Revoke(c.UserContext(), sid); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewStorageError(err))
		}
		observability.SessionEvents.WithLabelValues("revoked").Inc()
	}

	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"message": "Logged out",
	})
}

// openSession records a new server-side session for the user and returns the
// signed token that references it.
func (s *Server) openSession(c *fiber.Ctx, userID uint) (string, error) {
	ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
	sid, err := s.sessions.Create(c.UserContext(), userID, ttl)
	if err != nil {
		return "", err
	}
	observability.SessionEvents.WithLabelValues("created").Inc()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"sid": sid,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SessionSecret))
}
