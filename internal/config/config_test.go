package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "fpms", cfg.Database.Database)
	assert.Equal(t, ReferenceSourceDB, cfg.Reference.Source)
	assert.Equal(t, "fpms", cfg.Reference.Schema)
	assert.Equal(t, 30*time.Second, cfg.Report.QueryTimeout)
	assert.Equal(t, MaxListingLimit, cfg.Report.ListingLimit)
	assert.False(t, cfg.Report.StrictReportTypes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Same(t, &cfg.Database, cfg.ReferenceDatabase())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "registry")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REPORT_QUERY_TIMEOUT", "5")
	t.Setenv("REPORT_LISTING_LIMIT", "250")
	t.Setenv("STRICT_REPORT_TYPES", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REFERENCE_DB_NAME", "reference")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "registry", cfg.Database.Database)
	assert.False(t, cfg.DBEnabled)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Config.Addr)
	assert.Equal(t, 5*time.Second, cfg.Report.QueryTimeout)
	assert.Equal(t, 250, cfg.Report.ListingLimit)
	assert.True(t, cfg.Report.StrictReportTypes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)

	ref := cfg.ReferenceDatabase()
	assert.Equal(t, "reference", ref.Database)
	assert.Equal(t, "db.internal", ref.Host, "reference db inherits primary settings")
}

func TestLoad_ListingLimitIsClamped(t *testing.T) {
	t.Setenv("REPORT_LISTING_LIMIT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxListingLimit, cfg.Report.ListingLimit)
}

func TestLoad_HTTPReferenceNeedsURL(t *testing.T) {
	t.Setenv("REFERENCE_SOURCE", "http")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("REFERENCE_HTTP_URL", "http://reference.local")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ReferenceSourceHTTP, cfg.Reference.Source)
}

func TestLoad_UnknownReferenceSource(t *testing.T) {
	t.Setenv("REFERENCE_SOURCE", "ldap")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fpms.yaml")
	content := `
http:
  addr: ":7070"
database:
  host: yaml-host
  database: yamldb
log:
  level: debug
report:
  listing_limit: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_HOST", "env-host")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "env-host", cfg.Database.Host, "env overrides file")
	assert.Equal(t, "yamldb", cfg.Database.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Report.ListingLimit)
	assert.Equal(t, 5432, cfg.Database.Port, "defaults survive a partial file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
