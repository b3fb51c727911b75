package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	FunctionsLocal  = "local"
	FunctionsRemote = "remote"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	// PublicBaseURL prefixes blob download URLs.
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8080"`
	SignInRoute   string `env:"SIGNIN_ROUTE,    default=/signin"`
	StoreDriver   string `env:"STORE_DRIVER,    default=mongo"`
	Workers       int    `env:"WORKERS,         default=4"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Functions FunctionsConfig
	Guard     GuardConfig
	Actions   ActionsConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=atelier"`
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR,       default=localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB,         default=0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX, default=atelier"`
}

type FunctionsConfig struct {
	Mode    string        `env:"FUNCTIONS_MODE,     default=local"`
	BaseURL string        `env:"FUNCTIONS_BASE_URL"`
	Timeout time.Duration `env:"FUNCTIONS_TIMEOUT,  default=30s"`
}

type GuardConfig struct {
	Timeout time.Duration `env:"GUARD_TIMEOUT, default=5s"`
}

type ActionsConfig struct {
	// TTL bounds how long an unanswered confirmation is kept.
	TTL     time.Duration `env:"ACTION_TTL,      default=10m"`
	LockTTL time.Duration `env:"ACTION_LOCK_TTL, default=2m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Functions.Mode {
	case FunctionsLocal:
	case FunctionsRemote:
		if c.Functions.BaseURL == "" {
			return fmt.Errorf("FUNCTIONS_BASE_URL is required when FUNCTIONS_MODE=remote")
		}
	default:
		return fmt.Errorf("unknown FUNCTIONS_MODE %q", c.Functions.Mode)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
