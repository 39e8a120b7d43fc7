package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "0123456789abcdef0123")
	t.Setenv("DISCORD_CLIENT_ID", "client-id")
	t.Setenv("DISCORD_CLIENT_SECRET", "client-secret")
}

// unsetForTest removes key for the duration of the test. t.Setenv restores
// the original value afterwards, including anything a .env file sets.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "data/relay.db", cfg.DBPath)
	assert.Equal(t, "http://127.0.0.1:8000/auth", cfg.DiscordRedirectURI)
	assert.Equal(t, "https://discord.com/api/oauth2/token", cfg.DiscordTokenURL)
	assert.Equal(t, "http://127.0.0.1:5500/", cfg.FrontendURL)
	assert.Equal(t, []string{"http://127.0.0.1:5500"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.False(t, cfg.RotateRefreshTokens)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("SECURE_COOKIES", "false")
	t.Setenv("PROVIDER_TIMEOUT", "750ms")
	t.Setenv("ROTATE_REFRESH_TOKENS", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, 750*time.Millisecond, cfg.ProviderTimeout)
	assert.True(t, cfg.RotateRefreshTokens)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing secret", "JWT_SECRET_KEY", ""},
		{"short secret", "JWT_SECRET_KEY", "short"},
		{"missing client id", "DISCORD_CLIENT_ID", ""},
		{"missing client secret", "DISCORD_CLIENT_SECRET", ""},
		{"bad port", "PORT", "not-a-number"},
		{"port out of range", "PORT", "70000"},
		{"bad timeout", "PROVIDER_TIMEOUT", "soon"},
		{"zero timeout", "PROVIDER_TIMEOUT", "0s"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			if tt.value == "" {
				unsetForTest(t, tt.key)
			} else {
				t.Setenv(tt.key, tt.value)
			}

			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	setRequired(t)
	unsetForTest(t, "DISCORD_CLIENT_SECRET")
	unsetForTest(t, "FRONTEND_URL")
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "DISCORD_CLIENT_SECRET=from-file\nFRONTEND_URL=https://app.test/\nPORT=1234\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.DiscordClientSecret)
	assert.Equal(t, "https://app.test/", cfg.FrontendURL)
	assert.Equal(t, 7000, cfg.Port, "process environment wins over the file")
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KEY='unterminated\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
