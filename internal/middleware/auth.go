// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"strconv"
	"strings"

	"agora/internal/config"
	"agora/internal/models"
	"agora/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var (
	cfg      *config.Config
	sessions session.Store
)

// InitMiddleware initializes authentication middleware with the given config
// and session store.
func InitMiddleware(c *config.Config, store session.Store) {
	cfg = c
	sessions = store
}

// principalFromRequest extracts and verifies the session token, returning the
// authenticated user id. ok=false means no valid principal; the reason string
// is suitable for a 401 response.
func principalFromRequest(c *fiber.Ctx) (userID uint, ok bool, reason string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false, "Authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false, "Invalid authorization header format"
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, hmacOK := token.Method.(*jwt.SigningMethodHMAC); !hmacOK {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.SessionSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false, "Invalid or expired token"
	}

	claims, claimsOK := token.Claims.(jwt.MapClaims)
	if !claimsOK {
		return 0, false, "Invalid token claims"
	}

	subStr, subOK := claims["sub"].(string)
	if !subOK {
		return 0, false, "Invalid token structure - missing subject"
	}
	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return 0, false, "Invalid user ID in token"
	}

	sid, sidOK := claims["sid"].(string)
	if !sidOK || sid == "" {
		return 0, false, "Invalid token structure - missing session"
	}

	// The token is only half the story: the server-side session record must
	// still exist. A revoked (logged-out) session fails here even though the
	// token signature is valid.
	storedID, active, err := sessions.UserID(c.UserContext(), sid)
	if err != nil || !active || storedID != uint(userIDVal) {
		return 0, false, "Session expired or revoked"
	}

	return uint(userIDVal), true, ""
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	userID, ok, reason := principalFromRequest(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError(reason))
	}

	storePrincipal(c, userID)
	return c.Next()
}

// OptionalAuth resolves the principal when credentials are present but lets
// anonymous requests through. Used by endpoints whose behavior varies with
// identity (e.g. viewer-key derivation) without requiring login.
func OptionalAuth(c *fiber.Ctx) error {
	if c.Get("Authorization") != "" {
		if userID, ok, _ := principalFromRequest(c); ok {
			storePrincipal(c, userID)
		}
	}
	return c.Next()
}

// storePrincipal publishes the authenticated identity to locals and syncs it
// into the user context so downstream log lines carry the user id.
func storePrincipal(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	if sid := sessionIDFromToken(c); sid != "" {
		c.Locals("sessionID", sid)
	}
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// sessionIDFromToken re-reads the sid claim without re-verifying; only called
// after principalFromRequest succeeded.
func sessionIDFromToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 {
		return ""
	}
	token, _, err := jwt.NewParser().ParseUnverified(parts[1], jwt.MapClaims{})
	if err != nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sid, _ := claims["sid"].(string)
	return sid
}
