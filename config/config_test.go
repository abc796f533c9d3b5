package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []int{1, 2, 3, 4}, cfg.DB.ReactIDs)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slackr.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = "9000"

[db]
path = "/tmp/test.db"
`), 0o600))

	t.Setenv("SLACKR_DB_PATH", "/var/lib/slackr.db")
	t.Setenv("SLACKR_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "/var/lib/slackr.db", cfg.DB.Path)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.jwt_secret", envKey("SLACKR_AUTH_JWT_SECRET"))
	assert.Equal(t, "log.level", envKey("SLACKR_LOG_LEVEL"))
	assert.Equal(t, "debug", envKey("SLACKR_DEBUG"))
}

func TestLoadListsFromEnv(t *testing.T) {
	t.Setenv("SLACKR_DB_REACT_IDS", "1,2,3,4,5")
	t.Setenv("SLACKR_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.DB.ReactIDs)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestEnvValue(t *testing.T) {
	key, v := envValue("SLACKR_DB_REACT_IDS", "7")
	assert.Equal(t, "db.react_ids", key)
	assert.Equal(t, []string{"7"}, v)

	key, v = envValue("SLACKR_LOG_LEVEL", "debug")
	assert.Equal(t, "log.level", key)
	assert.Equal(t, "debug", v)
}
