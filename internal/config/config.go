// Package config provides environment configuration for all grocerly services.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds configuration shared by the grocerly services. Each service reads
// the sections it needs; unused sections keep their defaults.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Outbox   OutboxConfig
	Bus      BusConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port        string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV"     envDefault:"development"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     string `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"grocerly"`
	Password string `env:"DB_PASSWORD" envDefault:"grocerly"`
	Name     string `env:"DB_NAME"     envDefault:"grocerly"`
	SSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"10s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE"    envDefault:"100"`
	MaxRetries   int           `env:"OUTBOX_MAX_RETRIES"   envDefault:"5"`
	RetryDelay   time.Duration `env:"OUTBOX_RETRY_DELAY"   envDefault:"1m"`
	MessageTTL   time.Duration `env:"OUTBOX_MESSAGE_TTL"   envDefault:"24h"`
	Retention    time.Duration `env:"OUTBOX_RETENTION"     envDefault:"72h"`
}

type BusConfig struct {
	ConnectRetries    int           `env:"BUS_CONNECT_RETRIES"    envDefault:"5"`
	ConnectRetryDelay time.Duration `env:"BUS_CONNECT_DELAY"      envDefault:"10s"`
	ConsumerName      string        `env:"BUS_CONSUMER_NAME"      envDefault:"consumer-1"`
	MaxDeliveries     int           `env:"BUS_MAX_DELIVERIES"     envDefault:"5"`
	RedeliveryDelay   time.Duration `env:"BUS_REDELIVERY_DELAY"   envDefault:"5s"`
	BlockTimeout      time.Duration `env:"BUS_BLOCK_TIMEOUT"      envDefault:"1s"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"       envDefault:"dev-secret-change-me"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TTL"   envDefault:"24h"`
}

type GatewayConfig struct {
	CatalogURL      string `env:"CATALOG_URL"       envDefault:"http://localhost:8081"`
	ShoppingListURL string `env:"SHOPPING_LIST_URL" envDefault:"http://localhost:8082"`
	NotifierURL     string `env:"NOTIFIER_URL"      envDefault:"http://localhost:8083"`
}

// LoadConfig parses environment variables into Config. A local .env file is
// loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
