// Package config loads process settings from the environment, after
// merging the first .env file found on the search path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type HTTP struct {
	Port            string        `env:"HTTP_PORT" envDefault:"9000"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// TrustUserHeader lets X-User-Id stand in for a bearer token.
	TrustUserHeader bool `env:"TRUST_USER_HEADER" envDefault:"false"`
}

type Postgres struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"lockbox"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

type Store struct {
	// Backend is one of postgres, bolt or memory.
	Backend     string        `env:"STORE_BACKEND" envDefault:"postgres"`
	BoltPath    string        `env:"BOLT_PATH" envDefault:"lockbox.db"`
	CallTimeout time.Duration `env:"STORE_CALL_TIMEOUT" envDefault:"5s"`
	MaxRetries  int           `env:"STORE_MAX_RETRIES" envDefault:"5"`
	Postgres    Postgres
}

type Kafka struct {
	// An empty broker list selects the in-process loopback bus.
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"invitation-events"`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"guardian-sync"`
}

type Outbox struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	MaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	StaleAfter   time.Duration `env:"OUTBOX_STALE_AFTER" envDefault:"1m"`
}

type Unlock struct {
	Policy    string `env:"UNLOCK_POLICY" envDefault:"majority"`
	Threshold int    `env:"UNLOCK_THRESHOLD" envDefault:"1"`
}

type Redeem struct {
	RatePerMinute float64 `env:"REDEEM_RATE_PER_MINUTE" envDefault:"10"`
	Burst         int     `env:"REDEEM_BURST" envDefault:"5"`
}

type Admin struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
	// PasswordHash is a bcrypt hash used when no database holds admins.
	PasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`
	GRPCPort string `env:"GRPC_HEALTH_PORT" envDefault:"9090"`
	HTTP     HTTP
	Store    Store
	Kafka    Kafka
	Outbox   Outbox
	Unlock   Unlock
	Redeem   Redeem
	Admin    Admin
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	loadEnv()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// loadEnv walks up from the working directory and loads the first .env it
// meets. Variables already set in the process win.
func loadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
