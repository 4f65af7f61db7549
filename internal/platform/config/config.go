package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"
)

// Hashing captures the email-digest parameters. Iterations and salt length
// are recorded per record at write time, so raising the defaults here never
// invalidates existing records.
type Hashing struct {
	Iterations  int
	SaltLength  int
	TokenLength int
	// LookupKey keys the deterministic duplicate-detection digest. Per-record
	// salts make the primary email digest non-deterministic, so duplicate
	// checks need a keyed blind index instead.
	LookupKey []byte
}

// SMTP captures outbound mail settings; Host empty disables delivery.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Redis captures connection settings for the optional rate-limit backend.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimit bounds deletion and registration attempts per client IP.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Server is the top-level configuration assembled from the environment.
type Server struct {
	Addr         string
	BaseURL      string
	DatabaseURL  string
	KafkaBrokers []string
	AuditTopic   string
	Hashing      Hashing
	SMTP         SMTP
	Redis        Redis
	RateLimit    RateLimit
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("ADORO_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(envOr("ADORO_BASE_URL", "http://localhost:8080"), "/"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AuditTopic:  envOr("ADORO_AUDIT_TOPIC", "adoro.audit"),
		Hashing: Hashing{
			Iterations:  envInt("ADORO_PBKDF2_ITERATIONS", 320000),
			SaltLength:  envInt("ADORO_SALT_LENGTH", 16),
			TokenLength: envInt("ADORO_TOKEN_LENGTH", 32),
			LookupKey:   lookupKey(),
		},
		SMTP: SMTP{
			Host:     os.Getenv("ADORO_SMTP_HOST"),
			Port:     envInt("ADORO_SMTP_PORT", 587),
			Username: os.Getenv("ADORO_SMTP_USERNAME"),
			Password: os.Getenv("ADORO_SMTP_PASSWORD"),
			From:     envOr("ADORO_SMTP_FROM", "no-reply@localhost"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RateLimit: RateLimit{
			Limit:  envInt("ADORO_RATELIMIT", 30),
			Window: time.Duration(envInt("ADORO_RATELIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func lookupKey() []byte {
	raw := os.Getenv("ADORO_LOOKUP_KEY")
	if raw == "" {
		// Development default - must be overridden in production.
		raw = "6465762d6c6f6f6b75702d6b65792d6368616e67652d6d65"
	}
	key, err := hex.DecodeString(raw)
	if err != nil || len(key) == 0 {
		return []byte(raw)
	}
	return key
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
