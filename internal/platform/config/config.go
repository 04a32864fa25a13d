package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-wide configuration. It is built once at startup
// and never mutated afterwards; components receive the values they need
// through constructors.
type Server struct {
	Addr      string
	SecretKey string
	TokenTTL  time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig holds connection settings for the lockout store. An empty URL
// means Redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit pipeline settings. No brokers means audit events
// stay in-process.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// DefaultTokenTTL is the documented default lifetime of an access token.
const DefaultTokenTTL = 30 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUREUS_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	secretKey := os.Getenv("AUREUS_SECRET_KEY")
	if secretKey == "" {
		// Use a default for development - should be overridden in production
		secretKey = "dev-secret-key-change-in-production"
	}

	ttl := DefaultTokenTTL
	if raw := os.Getenv("AUREUS_TOKEN_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "aureus.audit"
	}

	return Server{
		Addr:        addr,
		SecretKey:   secretKey,
		TokenTTL:    ttl,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: auditTopic,
		},
	}
}
