package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "STORE_DRIVER", "LOCK_TIMEOUT", "REQUEST_TIMEOUT", "REPLENISH_WORKERS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	require.Equal(t, ":8081", cfg.HTTPAddr)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, DriverPostgres, cfg.StoreDriver)
	require.Equal(t, 3*time.Second, cfg.LockTimeout)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 4, cfg.ReplenishWorkers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("REQUEST_TIMEOUT", "2500")
	t.Setenv("REPLENISH_WORKERS", "8")

	cfg := Load()
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
	require.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout)
	require.Equal(t, 8, cfg.ReplenishWorkers)
}

func TestDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "soon")
	require.Equal(t, 3*time.Second, getenvDuration("LOCK_TIMEOUT", 3*time.Second))

	t.Setenv("LOCK_TIMEOUT", "-5s")
	require.Equal(t, 3*time.Second, getenvDuration("LOCK_TIMEOUT", 3*time.Second))
}
