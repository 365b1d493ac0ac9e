package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "mongo", cfg.Database.Driver)
	require.True(t, cfg.Database.Transactions)
	require.Equal(t, time.Hour, cfg.JWT.Expiration)
	require.Equal(t, 10*time.Minute, cfg.Generation.JobTimeout)
	require.Equal(t, 15*time.Second, cfg.Generation.SweepInterval)
	require.Equal(t, 30*time.Second, cfg.Worker.DispatchTimeout)
	require.Equal(t, 2*time.Second, cfg.Worker.InProcessDelay)
	require.Equal(t, "generation-jobs", cfg.Redis.Channel)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: memory
generation:
  job_timeout: 90s
worker:
  url: http://worker.internal/jobs
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, "memory", cfg.Database.Driver)
	require.Equal(t, 90*time.Second, cfg.Generation.JobTimeout)
	require.Equal(t, "http://worker.internal/jobs", cfg.Worker.URL)
	require.Equal(t, "from-env", cfg.JWT.Secret)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}
