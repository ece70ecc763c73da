package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Store.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, "majority", cfg.Unlock.Policy)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_BACKEND", "bolt")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("UNLOCK_POLICY", "threshold")
	t.Setenv("UNLOCK_THRESHOLD", "3")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Unlock.Threshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
}

func TestLoadDotEnvFromParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GRPC_HEALTH_PORT=7777\n"), 0o600))
	nested := filepath.Join(root, "cmd", "consumer")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)
	t.Cleanup(func() { os.Unsetenv("GRPC_HEALTH_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.GRPCPort)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_CALL_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
