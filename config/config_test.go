package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "2012-01-01", cfg.Collection.DefaultStartDate)
	assert.Equal(t, 4, cfg.DB.MaxRetries)
	assert.Equal(t, time.Second, cfg.DB.BackoffBase())
	assert.Equal(t, []string{"VNINDEX", "HNX-INDEX", "UPCOM-INDEX"}, cfg.Indices)

	start, err := cfg.Collection.StartDate()
	require.NoError(t, err)
	assert.Equal(t, 2012, start.Year())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
collection:
  default_start_date: "2020-06-01"
  batch_size: 100
  request_delay: 0.2
indices:
  - VNINDEX
db:
  host: db.example.com
  max_retries: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2020-06-01", cfg.Collection.DefaultStartDate)
	assert.Equal(t, 100, cfg.Collection.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Collection.RequestDelay())
	assert.Equal(t, []string{"VNINDEX"}, cfg.Indices)
	assert.Equal(t, "db.example.com", cfg.DB.Host)
	assert.Equal(t, 2, cfg.DB.MaxRetries)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  host: from-yaml\n"), 0o644))

	t.Setenv("DB_HOST", "from-env")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_HOST_IPV4", "203.0.113.9")
	t.Setenv("PROVIDER_API_KEY", "key-123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DB.Host)
	assert.Equal(t, "hunter2", cfg.DB.Password)
	assert.Equal(t, "203.0.113.9", cfg.DB.HostIPv4Override)
	assert.Equal(t, "key-123", cfg.Provider.APIKey)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Collection.BatchSize, cfg.Collection.BatchSize)
}

func TestLoad_RejectsMalformedStartDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection:\n  default_start_date: \"01/02/2020\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_start_date")
}

func TestDSN(t *testing.T) {
	cfg := DBConfig{Host: "db.supabase.co", Port: 5432, Name: "postgres", User: "app", Password: "s3cret"}

	dsn := cfg.DSN("")
	assert.Contains(t, dsn, "host=db.supabase.co")
	assert.Contains(t, dsn, "connect_timeout=10")
	assert.NotContains(t, dsn, "hostaddr")

	dsn = cfg.DSN("203.0.113.9")
	assert.Contains(t, dsn, "hostaddr=203.0.113.9")
	// host stays in the DSN so TLS and auth still see the name.
	assert.Contains(t, dsn, "host=db.supabase.co")
}
