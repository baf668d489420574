package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	assert.Equal(t, DefaultTimeouts(), LoadTimeouts())
}

func TestLoadTimeouts_FromEnvironment(t *testing.T) {
	t.Setenv("TRADEFLEET_TIMEOUT_INSTANCE_READY", "90s")
	t.Setenv("TRADEFLEET_READY_POLL_INTERVAL", "250ms")
	t.Setenv("HCLOUD_RETRY_MAX_ATTEMPTS", "9")

	got := LoadTimeouts()

	assert.Equal(t, 90*time.Second, got.InstanceReady)
	assert.Equal(t, 250*time.Millisecond, got.ReadyPollInterval)
	assert.Equal(t, 9, got.RetryMaxAttempts)
	assert.Equal(t, 10*time.Minute, got.ServerCreate)
}

func TestLoadTimeouts_InvalidFallsBackToDefaults(t *testing.T) {
	t.Setenv("HCLOUD_TIMEOUT_DELETE", "soon")

	assert.Equal(t, DefaultTimeouts(), LoadTimeouts())
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "secret")
	t.Setenv("TRADEFLEET_ARCHIVE_ACCESS_KEY", "ak")
	t.Setenv("TRADEFLEET_ARCHIVE_SECRET_KEY", "sk")

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.NoError(t, creds.RequireHCloudToken())
	assert.True(t, creds.HasArchiveKeys())
}

func TestCredentials_RequireHCloudToken(t *testing.T) {
	t.Parallel()
	err := (&Credentials{}).RequireHCloudToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HCLOUD_TOKEN")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRADEFLEET_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("TRADEFLEET_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("TRADEFLEET_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("TRADEFLEET_DOTENV_PROBE"))
}
