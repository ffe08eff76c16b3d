package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSecret is returned when SECRET_KEY is not set
var ErrMissingSecret = errors.New("SECRET_KEY environment variable is not set")

// Config holds the restock service settings, read from the environment
type Config struct {
	HTTPPort           string
	SecretKey          string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	AdminRatePerMinute int
	TrustProxyHeaders  bool

	RestockIntervalSeconds int
	TickInterval           time.Duration
	CatalogPath            string
	MaxWaiters             int
	MaxWait                time.Duration
	NotifyOnStockEdit      bool

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	KafkaTopic    string
	GRPCPort      string

	LogLevel  string
	LogFormat string
}

// Load reads and validates the configuration
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		HTTPPort:           getEnv("PORT", "10000"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		MaxRequestBodySize: 1 << 20, // 1MB
		CatalogPath:        os.Getenv("CATALOG_PATH"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "restock-events"),
		GRPCPort:           os.Getenv("GRPC_PORT"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	cfg.TickInterval = getDuration("TICK_INTERVAL", time.Second, &errs)
	cfg.MaxWait = getDuration("MAX_WAIT", 0, &errs)
	cfg.RestockIntervalSeconds = getInt("RESTOCK_INTERVAL_SECONDS", 300, &errs)
	cfg.MaxWaiters = getInt("MAX_WAITERS", 10000, &errs)
	cfg.AdminRatePerMinute = getInt("ADMIN_RATE_PER_MINUTE", 60, &errs)
	cfg.NotifyOnStockEdit = getBool("NOTIFY_ON_STOCK_EDIT", true, &errs)
	cfg.TrustProxyHeaders = getBool("TRUST_PROXY_HEADERS", false, &errs)

	if cfg.SecretKey == "" {
		errs = append(errs, ErrMissingSecret)
	}
	if cfg.RestockIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("RESTOCK_INTERVAL_SECONDS must be positive, got %d", cfg.RestockIntervalSeconds))
	}
	if cfg.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval))
	}
	if cfg.MaxWaiters < 0 {
		errs = append(errs, fmt.Errorf("MAX_WAITERS must not be negative, got %d", cfg.MaxWaiters))
	}
	if cfg.MaxWait < 0 {
		errs = append(errs, fmt.Errorf("MAX_WAIT must not be negative, got %s", cfg.MaxWait))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
