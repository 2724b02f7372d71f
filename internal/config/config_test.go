package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validBase() *Config {
	return &Config{
		Port:            "8470",
		SessionSecret:   "secure-secret-at-least-32-chars-long",
		SessionTTLHours: 168,
		DBPassword:      "secure-password",
		DBSSLMode:       "require",
		RedisURL:        "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validBase()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSessionSecret(t *testing.T) {
	c := validBase()
	c.Env = "production"
	c.SessionSecret = "short"
	assert.Error(t, c.Validate())

	c.SessionSecret = "dev-session-secret-change-in-production"
	assert.Error(t, c.Validate())

	c.SessionSecret = "secure-secret-at-least-32-chars-long"
	assert.NoError(t, c.Validate())
}

func TestConfig_ValidateSessionTTL(t *testing.T) {
	c := validBase()
	c.SessionTTLHours = 0
	assert.Error(t, c.Validate())
}

func TestLoadConfig_SSLModeNormalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8470", c.Port)
	assert.Equal(t, 168, c.SessionTTLHours)
	assert.True(t, c.TrustViewerKey)
}
