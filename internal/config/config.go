// Package config loads the relay's settings from the environment.
//
// Values come from process environment variables. An optional .env file is
// read first; variables already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest JWT_SECRET_KEY accepted.
const MinSecretLength = 16

// Config holds every setting the server needs.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8000"`
	DBPath string `env:"DB_PATH" envDefault:"data/relay.db"`

	JWTSecret string `env:"JWT_SECRET_KEY,required,notEmpty"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID,required,notEmpty"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET,required,notEmpty"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://127.0.0.1:8000/auth"`
	DiscordAuthURL      string `env:"DISCORD_AUTH_URL" envDefault:"https://discord.com/oauth2/authorize"`
	DiscordTokenURL     string `env:"DISCORD_TOKEN_URL" envDefault:"https://discord.com/api/oauth2/token"`
	DiscordProfileURL   string `env:"DISCORD_PROFILE_URL" envDefault:"https://discord.com/api/users/@me"`

	FrontendURL        string   `env:"FRONTEND_URL" envDefault:"http://127.0.0.1:5500/"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://127.0.0.1:5500" envSeparator:","`
	SecureCookies      bool     `env:"SECURE_COOKIES" envDefault:"true"`

	ProviderTimeout     time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`
	RotateRefreshTokens bool          `env:"ROTATE_REFRESH_TOKENS" envDefault:"false"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment into a Config and validates it. Missing .env files are
// not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the constraints struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET_KEY must be at least %d characters", MinSecretLength)
	}
	if c.DBPath == "" {
		return errors.New("config: DB_PATH must not be empty")
	}
	if c.FrontendURL == "" {
		return errors.New("config: FRONTEND_URL must not be empty")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("config: PROVIDER_TIMEOUT must be positive")
	}
	return nil
}
