package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"AHORRO_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"THRIFT_MAX_MEMBERS", "THRIFT_REQUIRE_SCHEDULED_MEMBER", "OUTBOX_POLL_INTERVAL", "DEV_ACCOUNTS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "ahorro.ledger-events", cfg.Kafka.Topic)
	assert.Equal(t, 32, cfg.Thrift.MaxMembers)
	assert.False(t, cfg.Thrift.RequireScheduledMember)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
	assert.Empty(t, cfg.DevAccounts)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("AHORRO_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("THRIFT_MAX_MEMBERS", "12")
	t.Setenv("THRIFT_REQUIRE_SCHEDULED_MEMBER", "true")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 12, cfg.Thrift.MaxMembers)
	assert.True(t, cfg.Thrift.RequireScheduledMember)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
}

func TestFromEnv_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("THRIFT_MAX_MEMBERS", "-3")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")

	cfg := FromEnv()
	assert.Equal(t, 32, cfg.Thrift.MaxMembers)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
}

func TestFromEnv_DevAccounts(t *testing.T) {
	t.Setenv("DEV_ACCOUNTS", "alice:USDC:5000, did:key:z6Mk:USDC:10,bob:USDC:lots,:USDC:1,carol::1,dave:EURC:0")

	cfg := FromEnv()
	assert.Equal(t, []DevAccount{
		{Owner: "alice", Asset: "USDC", Balance: 5000},
		{Owner: "did:key:z6Mk", Asset: "USDC", Balance: 10},
		{Owner: "dave", Asset: "EURC", Balance: 0},
	}, cfg.DevAccounts)
}
