package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"job_id", "j1", "worker_token", "abc", "Authorization", "Bearer x", "dangling"})
	require.Equal(t, []interface{}{"job_id", "j1", "worker_token", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, out)
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", "test"} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		l.With("component", "test").Debug("hello", "k", 1)
	}
	Nop().Info("discarded")
}
