package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven settings for the service.
// Loaded once at startup; pool values seed newly created rounds only —
// existing pool rows keep the values they were created with.
type Config struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":5300"`
	ServiceToken   string `envconfig:"MOOD_SERVICE_TOKEN" required:"true"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	SyncServiceURL   string `envconfig:"SYNC_SERVICE_URL"`
	SyncEndpointPath string `envconfig:"SYNC_ENDPOINT_PATH" default:"/api/v1/public/profiles"`

	PoolTargetTokens          int64   `envconfig:"POOL_TARGET_TOKENS" default:"1000000"`
	CharityPercentage         int     `envconfig:"POOL_CHARITY_PERCENTAGE" default:"15"`
	TopContributorsPercentage int     `envconfig:"POOL_TOP_CONTRIBUTORS_PERCENTAGE" default:"85"`
	MaxTopContributors        int     `envconfig:"POOL_MAX_TOP_CONTRIBUTORS" default:"50"`
	CharityName               string  `envconfig:"POOL_CHARITY_NAME" default:"Mental Health America"`
	TokenUSDRate              float64 `envconfig:"TOKEN_USD_RATE" default:"0.001"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}
