package viewer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ExplicitKeyWins(t *testing.T) {
	t.Parallel()

	key := Resolve("  custom-key  ", 42, "10.0.0.1", "curl/8.0")
	assert.Equal(t, "custom-key", key)
}

func TestResolve_AuthenticatedUser(t *testing.T) {
	t.Parallel()

	key := Resolve("", 42, "10.0.0.1", "curl/8.0")
	assert.Equal(t, "u:42", key)
}

func TestResolve_GuestFingerprint(t *testing.T) {
	t.Parallel()

	key := Resolve("", 0, "10.0.0.1", "Mozilla/5.0")
	assert.True(t, strings.HasPrefix(key, "g:"))
	assert.Len(t, key, len("g:")+32)

	// Deterministic for identical inputs.
	assert.Equal(t, key, Resolve("", 0, "10.0.0.1", "Mozilla/5.0"))

	// Distinct origin or agent produces a distinct key.
	assert.NotEqual(t, key, Resolve("", 0, "10.0.0.2", "Mozilla/5.0"))
	assert.NotEqual(t, key, Resolve("", 0, "10.0.0.1", "curl/8.0"))
}

func TestResolve_EmptyAgentStillResolves(t *testing.T) {
	t.Parallel()

	key := Resolve("", 0, "10.0.0.1", "")
	assert.True(t, strings.HasPrefix(key, "g:"))
	assert.NotEmpty(t, key)
}

func TestResolve_WhitespaceExplicitFallsThrough(t *testing.T) {
	t.Parallel()

	key := Resolve("   ", 7, "10.0.0.1", "curl/8.0")
	assert.Equal(t, "u:7", key)
}

func TestIsGuest(t *testing.T) {
	t.Parallel()

	assert.True(t, IsGuest(Resolve("", 0, "10.0.0.1", "x")))
	assert.False(t, IsGuest(Resolve("", 9, "10.0.0.1", "x")))
	assert.False(t, IsGuest("explicit"))
}
