package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, old) })
		}
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.Tracking.ExposeRecent, "individual views stay private by default")
}

func TestLoadFile_TOMLOverlay(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE")

	path := writeTOML(t, `
[server]
port = 9090
read_timeout = "5s"

[data]
csv_path = "/srv/parcoursup.csv"

[insights]
pairs_n = 5
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Std(), "untouched keys keep defaults")
	assert.Equal(t, "/srv/parcoursup.csv", cfg.Data.CSVPath)
	assert.Equal(t, 5, cfg.Insights.PairsN)
	assert.Equal(t, 15, cfg.Insights.TotalsN)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE")
	path := writeTOML(t, "[server]\nport = 9090\n")
	t.Setenv("PORTFOLIO_SERVER_PORT", "7070")
	t.Setenv("PORTFOLIO_LOGGING_LEVEL", "debug")
	t.Setenv("PORTFOLIO_TRACKING_ENABLED", "false")
	t.Setenv("PORTFOLIO_SERVER_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("PORTFOLIO_TRACKING_EXPOSE_RECENT", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Tracking.Enabled)
	assert.True(t, cfg.Tracking.ExposeRecent)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout.Std())
}

func TestLoadFile_HostVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("GIN_MODE", "debug")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)

	t.Setenv("PORTFOLIO_SERVER_PORT", "4000")
	cfg, err = LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port, "prefixed key wins over the bare one")
}

func TestLoadFile_Invalid(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE")

	_, err := LoadFile(writeTOML(t, "[server\nport = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")

	_, err = LoadFile(writeTOML(t, "[insights]\npairs_n = 0\n[server]\nmode = \"turbo\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insights.pairs_n must be positive")
	assert.Contains(t, err.Error(), `server.mode "turbo"`)
}

func TestValidate_TrackingNeedsDB(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Data.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg.Tracking.Enabled = false
	assert.NoError(t, cfg.Validate())
}
