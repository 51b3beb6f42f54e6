package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	JWTSecret       string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration

	// LazyCreate makes membership operations create the default record on first touch.
	LazyCreate      bool
	LockTimeout     time.Duration
	ConflictRetries int

	SweepInterval time.Duration
	SweepBatch    int
	SweepWorkers  int

	// RateLimit is the allowed purchase writes per second; zero disables the limiter.
	RateLimit float64
	RateBurst int

	LogLevel slog.Level
}

const (
	defaultRunAddress      = ":8080"
	defaultJWTSecret       = "change-me-in-production"
	defaultTokenTTL        = 24 * time.Hour
	defaultShutdownTimeout = 10 * time.Second
	defaultLazyCreate      = true
	defaultLockTimeout     = 2 * time.Second
	defaultConflictRetries = 3
	defaultSweepInterval   = time.Minute
	defaultSweepBatch      = 100
	defaultSweepWorkers    = 4
	defaultRateBurst       = 20
	defaultLogLevel        = "info"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		JWTSecret:       getString(lookup, "JWT_SECRET", defaultJWTSecret),
		TokenTTL:        getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LazyCreate:      getBool(lookup, "MEMBERSHIP_LAZY_CREATE", defaultLazyCreate),
		LockTimeout:     getDuration(lookup, "LOCK_TIMEOUT", defaultLockTimeout),
		ConflictRetries: getInt(lookup, "CONFLICT_RETRIES", defaultConflictRetries),
		SweepInterval:   getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatch:      getInt(lookup, "SWEEP_BATCH", defaultSweepBatch),
		SweepWorkers:    getInt(lookup, "SWEEP_WORKERS", defaultSweepWorkers),
		RateLimit:       getFloat(lookup, "RATE_LIMIT", 0),
		RateBurst:       getInt(lookup, "RATE_BURST", defaultRateBurst),
	}

	fs := flag.NewFlagSet("loyaltytiers", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		tokenTTLStr        = cfg.TokenTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		lockTimeoutStr     = cfg.LockTimeout.String()
		sweepIntervalStr   = cfg.SweepInterval.String()
		logLevelStr        = getString(lookup, "LOG_LEVEL", defaultLogLevel)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, empty keeps state in memory")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&tokenTTLStr, "token-ttl", tokenTTLStr, "Auth token lifetime")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.BoolVar(&cfg.LazyCreate, "lazy-create", cfg.LazyCreate, "Create membership records on first touch")
	fs.StringVar(&lockTimeoutStr, "lock-timeout", lockTimeoutStr, "Per-user lock acquisition timeout")
	fs.IntVar(&cfg.ConflictRetries, "conflict-retries", cfg.ConflictRetries, "Retries for contended membership updates")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between expired window sweeps")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", cfg.SweepBatch, "Maximum records finalized per sweep")
	fs.IntVar(&cfg.SweepWorkers, "sweep-workers", cfg.SweepWorkers, "Number of concurrent sweep workers")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Purchase writes per second, 0 disables")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "Purchase limiter burst")
	fs.StringVar(&logLevelStr, "log-level", logLevelStr, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.TokenTTL, err = time.ParseDuration(tokenTTLStr); err != nil {
		return nil, fmt.Errorf("invalid token ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.LockTimeout, err = time.ParseDuration(lockTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid lock timeout: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(logLevelStr))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}

	// Zero retries is a valid choice: fail fast on the first conflict.
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = defaultConflictRetries
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}

	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = defaultSweepWorkers
	}

	if cfg.RateLimit < 0 {
		cfg.RateLimit = 0
	}

	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
