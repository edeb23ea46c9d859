package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "ahorro/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	Thrift        ThriftConfig
	Outbox        OutboxConfig
	DevAccounts   []DevAccount
}

// DevAccount is a token account opened and funded at startup so a local
// deployment has wallets to contribute from and pay out to.
type DevAccount struct {
	Owner   string
	Asset   string
	Balance uint64
}

// RedisConfig configures the idempotency response cache. An empty URL keeps
// the cache in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the ledger event stream. No brokers disables the relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ThriftConfig struct {
	MaxMembers             int
	RequireScheduledMember bool
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// IdempotencyTTL is how long a replayable response is kept.
var IdempotencyTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AHORRO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "ahorro.ledger-events"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("JWT_ISSUER", "ahorro"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   topic,
		},
		Thrift: ThriftConfig{
			MaxMembers:             envInt("THRIFT_MAX_MEMBERS", 32),
			RequireScheduledMember: os.Getenv("THRIFT_REQUIRE_SCHEDULED_MEMBER") == "true",
		},
		Outbox: OutboxConfig{
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		},
		DevAccounts: parseDevAccounts(os.Getenv("DEV_ACCOUNTS")),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(raw, ","))
}

// parseDevAccounts reads owner:asset:balance entries separated by commas. The
// owner may itself contain colons. Malformed entries are skipped.
func parseDevAccounts(raw string) []DevAccount {
	var out []DevAccount
	for _, entry := range splitList(raw) {
		cut := strings.LastIndex(entry, ":")
		if cut <= 0 {
			continue
		}
		balance, err := strconv.ParseUint(entry[cut+1:], 10, 64)
		if err != nil {
			continue
		}
		rest := entry[:cut]
		cut = strings.LastIndex(rest, ":")
		if cut <= 0 || cut == len(rest)-1 {
			continue
		}
		out = append(out, DevAccount{Owner: rest[:cut], Asset: rest[cut+1:], Balance: balance})
	}
	return out
}
