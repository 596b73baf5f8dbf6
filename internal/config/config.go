package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment once at startup.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	UserAPIBaseURL string        `env:"USER_API_BASE_URL" envDefault:"https://jsonplaceholder.typicode.com"`
	UserAPITimeout time.Duration `env:"USER_API_TIMEOUT" envDefault:"10s"`

	// CacheBackend is one of sqlite, redis, postgres, mongo.
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./storefront-cache.db"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD"`
	MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName  string `env:"MONGO_DB_NAME" envDefault:"storefront"`

	// CredentialBackend is one of cache, secretmanager.
	CredentialBackend string `env:"CREDENTIAL_BACKEND" envDefault:"cache"`
	GCPProjectID      string `env:"GCP_PROJECT_ID"`

	// Empty KafkaBrokers disables the checkout consumer.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_CHECKOUT_TOPIC" envDefault:"checkout-outbox"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"storefront-cart"`
	CartOwnerID  string   `env:"CART_OWNER_ID" envDefault:"1"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.CacheBackend {
	case "sqlite", "redis", "mongo":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.CredentialBackend {
	case "cache":
	case "secretmanager":
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required for the secretmanager credential backend")
		}
	default:
		return fmt.Errorf("unknown CREDENTIAL_BACKEND %q", c.CredentialBackend)
	}
	return nil
}
