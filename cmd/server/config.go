package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the process configuration, loaded once at startup and
// read-only thereafter. It satisfies the auth.Config interface.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string

	SigningKey      string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AvatarDir     string
	AvatarBaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	StateKey           string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":3000"),
		DatabaseDSN: getEnv("DATABASE_DSN", "file:authcore.db"),

		SigningKey:      getEnv("JWT_SECRET", ""),
		Issuer:          getEnv("JWT_ISSUER", "authcore"),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_SEC", 900)) * time.Second,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_SEC", 604800)) * time.Second,

		AvatarDir:     getEnv("AVATAR_DIR", "./data/avatars"),
		AvatarBaseURL: getEnv("AVATAR_BASE_URL", "/avatars"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", ""),
		StateKey:           getEnv("OAUTH_STATE_KEY", ""),
	}

	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL_SEC must be > 0")
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL_SEC must exceed ACCESS_TOKEN_TTL_SEC")
	}
	if cfg.StateKey == "" {
		cfg.StateKey = cfg.SigningKey
	}

	return cfg, nil
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Issuer
}

func (c *Config) GetAudience() []string {
	return nil
}

func (c *Config) GetAccessTokenTTL() time.Duration {
	return c.AccessTokenTTL
}

func (c *Config) GetRefreshTokenTTL() time.Duration {
	return c.RefreshTokenTTL
}

func (c *Config) GetContextKey() string {
	return "user"
}

func (c *Config) GetAuthScheme() string {
	return "Bearer"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
