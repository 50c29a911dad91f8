package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port string

	Store      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret    string
	AuthDisabled bool

	DefaultAggregation model.Aggregation
	RecomputeBatchSize int
	RecomputeWorkers   int
	TxMaxAttempts      int
	TxRetryBaseDelay   time.Duration

	AWSRegion   string
	SNSTopicARN string

	LogLevel string
}

// DSN construit l'URL de connexion PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// PushEnabled indique si la diffusion SNS est configurée
func (c *Config) PushEnabled() bool {
	return c.SNSTopicARN != ""
}

// LoadConfig charge .env (facultatif) puis les variables d'environnement
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv construit la configuration à partir d'une fonction de lookup
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		Port:       r.str("PORT", "8080"),
		Store:      strings.ToLower(r.str("STORE", StorePostgres)),
		DBHost:     r.str("DB_HOST", "localhost"),
		DBPort:     r.str("DB_PORT", "5432"),
		DBUser:     r.str("DB_USER", "postgres"),
		DBPassword: r.str("DB_PASSWORD", ""),
		DBName:     r.str("DB_NAME", "pumppro"),
		DBSSLMode:  r.str("DB_SSLMODE", "disable"),

		JWTSecret:    r.str("JWT_SECRET", ""),
		AuthDisabled: r.boolean("AUTH_DISABLED", false),

		DefaultAggregation: model.Aggregation(strings.ToLower(r.str("DEFAULT_AGGREGATION", string(model.AggregateCount)))),
		RecomputeBatchSize: r.integer("RECOMPUTE_BATCH_SIZE", 200),
		RecomputeWorkers:   r.integer("RECOMPUTE_WORKERS", 4),
		TxMaxAttempts:      r.integer("TX_MAX_ATTEMPTS", 3),
		TxRetryBaseDelay:   r.duration("TX_RETRY_BASE_DELAY", 50*time.Millisecond),

		AWSRegion:   r.str("AWS_REGION", "eu-west-3"),
		SNSTopicARN: r.str("SNS_TOPIC_ARN", ""),

		LogLevel: r.str("LOG_LEVEL", "info"),
	}

	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if !c.DefaultAggregation.Valid() {
		return fmt.Errorf("DEFAULT_AGGREGATION must be count, sum or max, got %q", c.DefaultAggregation)
	}
	if c.RecomputeBatchSize < 1 {
		return fmt.Errorf("RECOMPUTE_BATCH_SIZE must be >= 1")
	}
	if c.RecomputeWorkers < 1 {
		return fmt.Errorf("RECOMPUTE_WORKERS must be >= 1")
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be >= 1")
	}
	if c.JWTSecret == "" && !c.AuthDisabled {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	return nil
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d
}
