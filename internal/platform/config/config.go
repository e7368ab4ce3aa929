// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string
	AuthSigningKey     string
	AuthIssuer         string
	AuthAudience       string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Screening configures the compliance workflow.
type Screening struct {
	RunTimeout       time.Duration
	WorkerTimeout    time.Duration
	CaseIDPrefix     string
	PreScreen        bool
	Jurisdiction     string
	ProfileWriteBack bool
	RosterFile       string
}

// Model configures the generative model backend.
type Model struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	BackoffUnit time.Duration
}

// Database configures the profile datastore. An empty URL disables it.
type Database struct {
	URL    string
	Driver string
}

// RedisConfig configures the profile cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ProfileTTL   time.Duration
}

// Kafka configures the decision event publisher. No brokers selects the
// log publisher.
type Kafka struct {
	Brokers       []string
	DecisionTopic string
	ClientID      string
}

// Sanctions configures the sanctions screener. Without a URL the static
// watchlist screener is used on its own.
type Sanctions struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	WatchlistFile string
}

// Documents configures the document locator backends.
type Documents struct {
	GCSCredentialsFile string
	S3Region           string
	S3Endpoint         string
	FetchTimeout       time.Duration
}

// Config is the full process configuration.
type Config struct {
	LogLevel  string
	Server    Server
	Screening Screening
	Model     Model
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Sanctions Sanctions
	Documents Documents
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &env{lookup: os.LookupEnv}
	cfg := Config{
		LogLevel: e.str("LOG_LEVEL", "info"),
		Server: Server{
			Addr:               e.str("KYC_ADDR", ":8080"),
			AuthSigningKey:     e.str("AUTH_SIGNING_KEY", ""),
			AuthIssuer:         e.str("AUTH_ISSUER", ""),
			AuthAudience:       e.str("AUTH_AUDIENCE", "kycgate"),
			CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),
			ShutdownTimeout:    e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Screening: Screening{
			RunTimeout:       e.duration("RUN_TIMEOUT", 90*time.Second),
			WorkerTimeout:    e.duration("WORKER_TIMEOUT", 60*time.Second),
			CaseIDPrefix:     e.str("CASE_ID_PREFIX", "KYC"),
			PreScreen:        e.boolean("PRESCREEN_SANCTIONS", true),
			Jurisdiction:     e.str("SANCTIONS_JURISDICTION", "ID"),
			ProfileWriteBack: e.boolean("PROFILE_WRITEBACK", false),
			RosterFile:       e.str("ROSTER_FILE", ""),
		},
		Model: Model{
			APIKey:      e.str("GEMINI_API_KEY", ""),
			BaseURL:     e.str("GEMINI_BASE_URL", ""),
			Model:       e.str("GEMINI_MODEL", ""),
			MaxAttempts: e.integer("MODEL_MAX_ATTEMPTS", 3),
			BackoffUnit: e.duration("MODEL_BACKOFF_UNIT", time.Second),
		},
		Database: Database{
			URL:    e.str("DATABASE_URL", ""),
			Driver: e.str("DATABASE_DRIVER", "pgx"),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			ProfileTTL:   e.duration("PROFILE_CACHE_TTL", time.Hour),
		},
		Kafka: Kafka{
			Brokers:       e.list("KAFKA_BROKERS"),
			DecisionTopic: e.str("KAFKA_DECISION_TOPIC", "kyc.decision.completed"),
			ClientID:      e.str("KAFKA_CLIENT_ID", "kycgate"),
		},
		Sanctions: Sanctions{
			URL:           e.str("SANCTIONS_URL", ""),
			APIKey:        e.str("SANCTIONS_API_KEY", ""),
			Timeout:       e.duration("SANCTIONS_TIMEOUT", 10*time.Second),
			WatchlistFile: e.str("WATCHLIST_FILE", ""),
		},
		Documents: Documents{
			GCSCredentialsFile: e.str("GCS_CREDENTIALS_FILE", ""),
			S3Region:           e.str("AWS_REGION", ""),
			S3Endpoint:         e.str("S3_ENDPOINT", ""),
			FetchTimeout:       e.duration("DOCUMENT_FETCH_TIMEOUT", 15*time.Second),
		},
	}
	if err := e.err(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be pgx or postgres, got %q", c.Database.Driver)
	}
	if c.Model.MaxAttempts < 1 {
		return fmt.Errorf("MODEL_MAX_ATTEMPTS must be at least 1")
	}
	if c.Screening.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}
	return nil
}

// env reads typed values and collects every parse error.
type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) list(key string) []string {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (e *env) integer(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (e *env) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
}
