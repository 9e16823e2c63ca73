package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name        string   `envconfig:"APP_NAME" default:"FeeFlow"`
		Port        int      `envconfig:"PORT" default:"8080"`
		CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"feeflow"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
		ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		MaxUploadBytes  int64         `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"10485760"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"text"`
	}

	Routing struct {
		TTL                 time.Duration `envconfig:"ROUTING_CACHE_TTL" default:"5m"`
		FallbackPayee       string        `envconfig:"ROUTING_FALLBACK_PAYEE" default:"fees.collection@upi"`
		FallbackDisplayName string        `envconfig:"ROUTING_FALLBACK_NAME" default:"School Management System"`
	}

	Reconcile struct {
		StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
		CodeLength   int           `envconfig:"REFERENCE_CODE_LENGTH" default:"8"`
		CodeAttempts int           `envconfig:"REFERENCE_CODE_ATTEMPTS" default:"5"`
	}

	// Alerts go to the log when no brokers are set.
	Kafka struct {
		Brokers []string `envconfig:"KAFKA_BROKERS"`
		Topic   string   `envconfig:"KAFKA_ALERT_TOPIC" default:"feeflow.alerts"`
	}

	// Cache invalidation stays in-process when no address is set.
	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		Channel  string `envconfig:"REDIS_CHANNEL" default:"feeflow:routing:invalidate"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// LogLevel parses Log.Level, defaulting to info for unknown names.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}

	return level
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Reconcile.StoreTimeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", cfg.Reconcile.StoreTimeout)
	}

	return &cfg, nil
}
