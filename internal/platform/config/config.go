package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "domainwatch/pkg/platform/strings"
)

// Config groups everything the server needs so main stays lean.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Registry Registry
	Refresh  Refresh
	Events   Events
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Postgres captures the relational store connection. An empty URL selects
// the in-memory store.
type Postgres struct {
	URL string
}

// Redis captures the registry response cache backend. An empty URL selects
// the in-memory cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Registry captures the external WHOIS API credential and limits. A missing
// APIKey is a configuration error surfaced on first use, not at startup, so
// the rest of the system stays usable.
type Registry struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Refresh captures cooldown policy for registry refreshes.
type Refresh struct {
	CooldownWindow time.Duration
	MaxBatchSize   int
}

// Events captures the optional outbound event stream. Empty brokers disable
// publishing.
type Events struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables with dev defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("DOMAINWATCH_ADDR", ":8080"),
		},
		Postgres: Postgres{
			URL: os.Getenv("DOMAINWATCH_POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("DOMAINWATCH_REDIS_URL"),
			PoolSize:     envInt("DOMAINWATCH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DOMAINWATCH_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("DOMAINWATCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DOMAINWATCH_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DOMAINWATCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Registry: Registry{
			APIKey:   os.Getenv("DOMAINWATCH_REGISTRY_API_KEY"),
			BaseURL:  envOr("DOMAINWATCH_REGISTRY_URL", "https://api.whoisjson.example/v1/whois"),
			Timeout:  envDuration("DOMAINWATCH_REGISTRY_TIMEOUT", 10*time.Second),
			CacheTTL: envDuration("DOMAINWATCH_REGISTRY_CACHE_TTL", 5*time.Minute),
		},
		Refresh: Refresh{
			CooldownWindow: envDuration("DOMAINWATCH_REFRESH_COOLDOWN", 24*time.Hour),
			MaxBatchSize:   envInt("DOMAINWATCH_MAX_BATCH_SIZE", 20),
		},
		Events: Events{
			Brokers: splitNonEmpty(os.Getenv("DOMAINWATCH_KAFKA_BROKERS")),
			Topic:   envOr("DOMAINWATCH_KAFKA_TOPIC", "domainwatch.refresh"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	return pkgstrings.DedupeAndTrim(strings.Split(raw, ","))
}
