package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the complete configuration of the walkmate API server.
// It is parsed once at startup and passed to components at construction;
// nothing reads the environment after that.
type Config struct {
	ServerAddr  string `env:"SERVER_ADDR"  envDefault:":8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`

	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"walkmate"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	Token    TokenConfig
	Provider ProviderConfig
}

// TokenConfig configures token issuing and refresh-token liveness.
//
// JWTExpiration bounds the access token and JWTRefreshSecret falls back to
// JWTSecret when unset. RefreshTokenExpirationInSec is the single source of
// truth for the refresh window; refresh tokens carry no embedded expiry.
type TokenConfig struct {
	JWTSecret                   string        `env:"JWT_SECRET"`
	JWTExpiration               time.Duration `env:"JWT_EXPIRATION"                  envDefault:"15m"`
	JWTRefreshSecret            string        `env:"JWT_REFRESH_SECRET"`
	RefreshTokenExpirationInSec int64         `env:"REFRESH_TOKEN_EXPIRATION_IN_SEC" envDefault:"604800"`
	Issuer                      string        `env:"JWT_ISSUER"                      envDefault:"walkmate-api"`
}

// ProviderConfig holds credentials for the social sign-in providers.
// A provider with empty credentials rejects sign-in attempts at runtime
// instead of failing startup, matching mobile builds that ship with a
// subset of providers enabled.
type ProviderConfig struct {
	FacebookAppID     string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"FACEBOOK_APP_SECRET"`
	LineChannelID     string `env:"LINE_CHANNEL_ID"`
	GoogleClientID    string `env:"GOOGLE_CLIENT_ID"`
	AppleClientID     string `env:"APPLE_CLIENT_ID"`
}

// Load parses the configuration from environment variables and validates it.
func Load(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Token.JWTRefreshSecret == "" {
		cfg.Token.JWTRefreshSecret = cfg.Token.JWTSecret
	}

	return &cfg
}

func (c *Config) validate() error {
	if c.Token.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET environment variable")
	}
	if c.Token.JWTExpiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive")
	}
	if c.Token.RefreshTokenExpirationInSec <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRATION_IN_SEC must be positive")
	}
	return nil
}
