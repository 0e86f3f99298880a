package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string   `env:"APP_ENV" envDefault:"development"`
	Port            string   `env:"PORT" envDefault:"8080"`
	DatabaseURL     string   `env:"DATABASE_URL"`
	JWTSecret       string   `env:"JWT_SECRET"`
	RedisURL        string   `env:"REDIS_URL"`
	GeoIPDBPath     string   `env:"GEOIP_DB_PATH"`
	DefaultLocale   string   `env:"DEFAULT_LOCALE" envDefault:"en"`
	CORSOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMin int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	Vertex VertexConfig
	Poller PollerConfig
}

// VertexConfig holds everything needed to reach the generation and
// enrichment models. It is resolved once and passed into the clients.
type VertexConfig struct {
	ServiceAccountJSON string        `env:"GCP_SERVICE_ACCOUNT"`
	ProjectID          string        `env:"VERTEX_PROJECT_ID"`
	Location           string        `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	BaseURL            string        `env:"VERTEX_BASE_URL"`
	TokenURL           string        `env:"VERTEX_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	DefaultVideoModel  string        `env:"VEO_DEFAULT_MODEL" envDefault:"veo-3.1-generate-preview"`
	EnrichModel        string        `env:"ENRICH_MODEL" envDefault:"gemini-2.0-flash"`
	EnrichEnabled      bool          `env:"ENRICH_ENABLED" envDefault:"true"`
	TokenTimeout       time.Duration `env:"TOKEN_TIMEOUT" envDefault:"10s"`
	PollTimeout        time.Duration `env:"POLL_TIMEOUT" envDefault:"15s"`
	SubmitTimeout      time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"120s"`
	EnrichTimeout      time.Duration `env:"ENRICH_TIMEOUT" envDefault:"30s"`
}

// PollerConfig drives the optional server-owned reconciliation loop.
type PollerConfig struct {
	Interval time.Duration `env:"POLLER_INTERVAL" envDefault:"10s"`
	Batches  int           `env:"POLLER_BATCHES" envDefault:"4"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes for HS256")
	}
	if err := cfg.Vertex.validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = 60
	}
	if cfg.Poller.Interval <= 0 {
		cfg.Poller.Interval = 10 * time.Second
	}
	if cfg.Poller.Batches <= 0 {
		cfg.Poller.Batches = 1
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	return &cfg, nil
}

func (v *VertexConfig) validate() error {
	v.ProjectID = strings.TrimSpace(v.ProjectID)
	v.Location = strings.TrimSpace(v.Location)
	if v.ProjectID == "" {
		return fmt.Errorf("VERTEX_PROJECT_ID is required")
	}
	if v.Location == "" {
		return fmt.Errorf("VERTEX_LOCATION must not be empty")
	}
	if v.DefaultVideoModel == "" {
		return fmt.Errorf("VEO_DEFAULT_MODEL must not be empty")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
