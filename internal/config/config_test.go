package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulaone/rolesync/internal/config"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8087", c.Server.Addr)
	assert.Equal(t, "file", c.Store.Driver)
	assert.Equal(t, "loopback", c.Sync.Driver)
	assert.Equal(t, "rolesync.role", c.Sync.Channel)
	assert.Equal(t, 3, c.Role.MaxAttempts)
	assert.Equal(t, 5*time.Minute, c.RoleTTL())
	assert.Equal(t, 30*time.Second, c.FallbackTTL())
	assert.Equal(t, 250*time.Millisecond, c.BaseDelay())
	assert.Equal(t, 300*time.Millisecond, c.DebounceWait())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := `
app:
  env: prod
server:
  addr: ":9090"
sync:
  driver: redis
  redis:
    addr: "redis:6379"
role:
  ttl: 10m
  max_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "redis", c.Sync.Driver)
	assert.Equal(t, "redis:6379", c.Sync.Redis.Addr)
	assert.Equal(t, 10*time.Minute, c.RoleTTL())
	assert.Equal(t, 5, c.Role.MaxAttempts)
	// Lo no especificado conserva defaults
	assert.Equal(t, "file", c.Store.Driver)
}

func TestLoad_InvalidDurationFallsToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role:\n  ttl: banana\n"), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, c.RoleTTL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSION_USER_ID", "env-user")
	t.Setenv("SESSION_TOKEN", "env-token")
	t.Setenv("REDIS_ADDR", "envhost:6379")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-user", c.Session.UserID)
	assert.Equal(t, "env-token", c.Session.Token)
	assert.Equal(t, "envhost:6379", c.Sync.Redis.Addr)
	assert.Equal(t, "envhost:6379", c.Store.Redis.Addr)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load("/no/such/file.yaml")
	assert.Error(t, err)
}
