package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the top level service configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	SessionTTL    time.Duration
	Redis         RedisConfig
	Kafka         KafkaConfig
	Backend       BackendConfig
}

// RedisConfig holds connection settings for the session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit event stream settings. Empty brokers
// means audit events stay in process.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// BackendConfig points at the case management system that accepts
// submitted exemptions.
type BackendConfig struct {
	BaseURL string
	Token   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MARLIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		SessionTTL:    envDuration("SESSION_TTL", 4*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envDefault("KAFKA_AUDIT_TOPIC", "marlin.audit"),
		},
		Backend: BackendConfig{
			BaseURL: os.Getenv("BACKEND_BASE_URL"),
			Token:   os.Getenv("BACKEND_TOKEN"),
		},
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
