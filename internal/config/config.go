package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Sources for stock levels and product records.
const (
	SourceHTTP  = "http"
	SourceRedis = "redis"
	SourceMySQL = "mysql"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	MySQL   MySQLConfig
	Sources SourceConfig
	Events  EventsConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	CartKey  string
}

type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type SourceConfig struct {
	Stock          string
	Catalog        string
	APIBaseURL     string
	RequestTimeout time.Duration
}

type EventsConfig struct {
	AMQPURL   string
	QueueSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":50051"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			CartKey:  getEnv("CART_KEY", "cart"),
		},
		MySQL: MySQLConfig{
			DSN:          getEnv("MYSQL_DSN", ""),
			MaxOpenConns: getEnvInt("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("MYSQL_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Sources: SourceConfig{
			Stock:          getEnv("STOCK_SOURCE", SourceHTTP),
			Catalog:        getEnv("CATALOG_SOURCE", SourceHTTP),
			APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:3333"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 3*time.Second),
		},
		Events: EventsConfig{
			AMQPURL:   getEnv("AMQP_URL", ""),
			QueueSize: getEnvInt("EVENTS_QUEUE_SIZE", 256),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Sources.Stock {
	case SourceHTTP, SourceRedis, SourceMySQL:
	default:
		return fmt.Errorf("STOCK_SOURCE: unknown source %q", c.Sources.Stock)
	}

	switch c.Sources.Catalog {
	case SourceHTTP, SourceMySQL:
	default:
		return fmt.Errorf("CATALOG_SOURCE: unknown source %q", c.Sources.Catalog)
	}

	if c.UsesSource(SourceHTTP) && c.Sources.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required for the http source")
	}
	if c.UsesSource(SourceMySQL) && c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required for the mysql source")
	}
	if c.Redis.CartKey == "" {
		return fmt.Errorf("CART_KEY must not be empty")
	}
	if c.Sources.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// UsesSource reports whether stock or catalog reads come from source.
func (c *Config) UsesSource(source string) bool {
	return c.Sources.Stock == source || c.Sources.Catalog == source
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
