package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Demo identity sources.
const (
	DemoSourceLocal  = "local"
	DemoSourceRemote = "remote"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-me"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Hive    HiveBackendConfig
	Admin   AdminConfig
}

// BackendConfig tells the dashboard where the REST backend lives.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_URL,     default=http://localhost:8081"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=10s"`
}

type SessionConfig struct {
	Store      string        `env:"SESSION_STORE,       default=file"`
	FilePath   string        `env:"SESSION_FILE,        default=.hive_dashboard/session.json"`
	DemoTTL    time.Duration `env:"SESSION_DEMO_TTL,    default=30m"`
	DemoSource string        `env:"SESSION_DEMO_SOURCE, default=local"`
	// Scope namespaces the record in shared stores (redis, mongo).
	Scope string `env:"SESSION_SCOPE, default=default"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hive_dashboard"`
}

// RedisConfig is optional: an empty Addr disables Redis and the backend
// falls back to in-process dedup.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// HiveBackendConfig holds settings read only by cmd/hivebackend.
type HiveBackendConfig struct {
	Port           string        `env:"HIVE_BACKEND_PORT,  default=8081"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,          default=24h"`
	ReadingWorkers int           `env:"READING_WORKERS,    default=4"`
	DedupCacheSize int           `env:"DEDUP_CACHE_SIZE,   default=10000"`
}

// AdminConfig seeds the first admin account on backend start-up. Skipped
// when Email is empty.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME, default=Administrator"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreFile, StoreRedis, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE: unknown store %q", c.Session.Store)
	}
	if c.Session.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("SESSION_STORE=redis requires REDIS_ADDR")
	}
	switch c.Session.DemoSource {
	case DemoSourceLocal, DemoSourceRemote:
	default:
		return fmt.Errorf("SESSION_DEMO_SOURCE: unknown source %q", c.Session.DemoSource)
	}
	if c.Session.DemoTTL <= 0 {
		return fmt.Errorf("SESSION_DEMO_TTL must be positive")
	}
	if c.Hive.ReadingWorkers <= 0 {
		return fmt.Errorf("READING_WORKERS must be positive")
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
