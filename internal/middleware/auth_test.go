package middleware

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"agora/internal/config"
	"agora/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-for-auth-tests"

func setupAuthTest(t *testing.T) session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	InitMiddleware(&config.Config{SessionSecret: testSecret, SessionTTLHours: 1}, store)
	return store
}

func signToken(t *testing.T, userID uint, sid, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"sid": sid,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthRequired(t *testing.T) {
	store := setupAuthTest(t)

	sid, err := store.Create(context.Background(), 42, time.Hour)
	require.NoError(t, err)

	revokedSid, err := store.Create(context.Background(), 42, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(context.Background(), revokedSid))

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "Valid token with live session",
			authHeader:     "Bearer " + signToken(t, 42, sid, testSecret, time.Now().Add(time.Hour)),
			expectedStatus: fiber.StatusOK,
		},
		{
			name:           "Missing authorization header",
			authHeader:     "",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Malformed header",
			authHeader:     "NotBearer token",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Wrong signing secret",
			authHeader:     "Bearer " + signToken(t, 42, sid, "some-other-secret-entirely-here", time.Now().Add(time.Hour)),
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Expired token",
			authHeader:     "Bearer " + signToken(t, 42, sid, testSecret, time.Now().Add(-time.Hour)),
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Revoked session",
			authHeader:     "Bearer " + signToken(t, 42, revokedSid, testSecret, time.Now().Add(time.Hour)),
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Session belongs to a different user",
			authHeader:     "Bearer " + signToken(t, 99, sid, testSecret, time.Now().Add(time.Hour)),
			expectedStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/protected", AuthRequired, func(c *fiber.Ctx) error {
				userID, ok := c.Locals("userID").(uint)
				require.True(t, ok)
				return c.JSON(fiber.Map{"user_id": userID})
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	store := setupAuthTest(t)

	sid, err := store.Create(context.Background(), 7, time.Hour)
	require.NoError(t, err)

	newApp := func() *fiber.App {
		app := fiber.New()
		app.Get("/maybe", OptionalAuth, func(c *fiber.Ctx) error {
			if userID, ok := c.Locals("userID").(uint); ok {
				return c.JSON(fiber.Map{"user_id": userID})
			}
			return c.JSON(fiber.Map{"user_id": nil})
		})
		return app
	}

	t.Run("Anonymous request passes through", func(t *testing.T) {
		resp, err := newApp().Test(httptest.NewRequest("GET", "/maybe", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Valid credentials resolve a principal", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/maybe", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, 7, sid, testSecret, time.Now().Add(time.Hour)))
		resp, err := newApp().Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Bad credentials do not fail the request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/maybe", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		resp, err := newApp().Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
