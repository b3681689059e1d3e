package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// chdirTemp keeps Load from picking up a .env file next to the package.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PANEL_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "", cfg.MetricsListenAddr)
	assert.Equal(t, "panel-api", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "vpanel", cfg.JWTIssuer)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginRatePerMin)
	assert.True(t, cfg.Provision.UseSudo)
	assert.Equal(t, "sudo", cfg.Provision.SudoPath)
	assert.False(t, cfg.Provision.DryRun)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PANEL_CONFIG", "")
	t.Setenv("PANEL_DATABASE_URL", "postgres://panel@localhost/panel")
	t.Setenv("PANEL_HTTP_LISTEN_ADDR", ":9000")
	t.Setenv("PANEL_LOG_LEVEL", "debug")
	t.Setenv("PANEL_SESSION_TTL", "30m")
	t.Setenv("PANEL_PROVISION__BIN_DIR", "/usr/local/sbin")
	t.Setenv("PANEL_PROVISION__DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://panel@localhost/panel", cfg.DatabaseURL)
	assert.Equal(t, ":9000", cfg.HTTPListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "/usr/local/sbin", cfg.Provision.BinDir)
	assert.True(t, cfg.Provision.DryRun)
}

func TestLoad_FileThenEnv(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://file/panel
jwt_issuer: from-file
provision:
  use_sudo: false
  sudo_path: /usr/bin/sudo
`), 0o600))
	t.Setenv("PANEL_CONFIG", path)
	t.Setenv("PANEL_JWT_ISSUER", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/panel", cfg.DatabaseURL)
	assert.Equal(t, "from-env", cfg.JWTIssuer)
	assert.False(t, cfg.Provision.UseSudo)
	assert.Equal(t, "/usr/bin/sudo", cfg.Provision.SudoPath)
}

func TestLoad_DotEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PANEL_CONFIG", "")
	require.NoError(t, os.WriteFile(".env", []byte("PANEL_SERVICE_NAME=panel-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PANEL_SERVICE_NAME") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "panel-dotenv", cfg.ServiceName)
}

func TestLoad_MissingFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PANEL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_Missing(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PANEL_DATABASE_URL")
	assert.Contains(t, err.Error(), "PANEL_JWT_SECRET")
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "postgres://localhost/panel"
	cfg.JWTSecret = "short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestValidate_OK(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "postgres://localhost/panel"
	cfg.JWTSecret = testSecret

	assert.NoError(t, cfg.Validate())
}
