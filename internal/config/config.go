package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StateFile    string `env:"STATE_FILE" envDefault:"data/state.json"`
	DBPath       string `env:"DB_PATH" envDefault:"data/partynight.db"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKey     string `env:"REDIS_KEY" envDefault:"partynight:state"`
	PostgresURL  string `env:"POSTGRES_URL"`

	// AdminPasswordHash is a bcrypt hash. Admin routes are closed when empty.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	WSPingInterval  time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	ClientQueueSize int           `env:"CLIENT_QUEUE_SIZE" envDefault:"16"`

	// SPADir is the built frontend served for non-API paths.
	SPADir string `env:"SPA_DIR" envDefault:"web/dist"`
}

// Load reads the optional .env files (".env" when none are given) and then
// parses the environment. Variables already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ClientQueueSize < 1 {
		return fmt.Errorf("CLIENT_QUEUE_SIZE must be positive, got %d", c.ClientQueueSize)
	}
	return nil
}
