package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type OAuthProvider struct {
	Key         string
	Secret      string
	CallbackURL string
}

func (p OAuthProvider) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

type Config struct {
	DatabasePath    string
	ServerAddr      string
	GameDuration    time.Duration
	SessionLifetime time.Duration
	SessionSecret   string

	// Zero means the random source is seeded from the clock.
	RNGSeed uint64

	GuestLogin bool
	Discord    OAuthProvider
	Google     OAuthProvider
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:  firstNonEmpty(os.Getenv("DATABASE_PATH"), "tcg_tournament.db"),
		ServerAddr:    firstNonEmpty(os.Getenv("SERVER_ADDR"), ":8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		Discord: OAuthProvider{
			Key:         os.Getenv("DISCORD_KEY"),
			Secret:      os.Getenv("DISCORD_SECRET"),
			CallbackURL: os.Getenv("DISCORD_CALLBACK_URL"),
		},
		Google: OAuthProvider{
			Key:         os.Getenv("GOOGLE_KEY"),
			Secret:      os.Getenv("GOOGLE_SECRET"),
			CallbackURL: os.Getenv("GOOGLE_CALLBACK_URL"),
		},
	}

	minutes, err := strconv.Atoi(firstNonEmpty(os.Getenv("GAME_DURATION_MINUTES"), "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid GAME_DURATION_MINUTES: %w", err)
	}
	if minutes <= 0 || minutes > 24*60 {
		return nil, fmt.Errorf("GAME_DURATION_MINUTES must be between 1 and 1440, got %d", minutes)
	}
	cfg.GameDuration = time.Duration(minutes) * time.Minute

	cfg.SessionLifetime, err = time.ParseDuration(firstNonEmpty(os.Getenv("SESSION_LIFETIME"), "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_LIFETIME: %w", err)
	}

	if seed := os.Getenv("RNG_SEED"); seed != "" {
		cfg.RNGSeed, err = strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RNG_SEED: %w", err)
		}
	}

	if guest := os.Getenv("GUEST_LOGIN"); guest != "" {
		cfg.GuestLogin, err = strconv.ParseBool(guest)
		if err != nil {
			return nil, fmt.Errorf("invalid GUEST_LOGIN: %w", err)
		}
	}

	return cfg, nil
}

func firstNonEmpty(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

// Redacted is safe to log.
func (c *Config) Redacted() string {
	secret := "[set]"
	if c.SessionSecret == "" {
		secret = "[empty]"
	}
	return fmt.Sprintf(
		"db=%s addr=%s gameDuration=%s sessionLifetime=%s guestLogin=%t discord=%t google=%t sessionSecret=%s",
		c.DatabasePath, c.ServerAddr, c.GameDuration, c.SessionLifetime, c.GuestLogin,
		c.Discord.Enabled(), c.Google.Enabled(), secret,
	)
}
