package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Leads.RateLimitMax)
	assert.Equal(t, 10*time.Minute, cfg.Leads.RateLimitWindow())
	assert.Equal(t, 12, cfg.Catalog.PageSize)
	assert.False(t, cfg.Catalog.PropertyTypeFilter)
	assert.Empty(t, cfg.Server.TrustedProxies, "no proxy is trusted by default")
	assert.Equal(t, 7*24*time.Hour, cfg.Admin.SessionTTL())
}

func TestLoadConfigOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	yml := `
database:
  driver: mysql
  mysql:
    host: db.internal
catalog:
  page_size: 24
  property_type_filter: true
leads:
  rate_limit_max: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.MySQL.Host)
	assert.Equal(t, 3306, cfg.Database.MySQL.Port, "unset keys keep defaults")
	assert.Equal(t, 24, cfg.Catalog.PageSize)
	assert.True(t, cfg.Catalog.PropertyTypeFilter)
	assert.Equal(t, 3, cfg.Leads.RateLimitMax)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: [oops"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_SECURE", "false")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("LEADS_NOTIFY_TO", "sales@example.com")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TRUSTED_PROXIES", "127.0.0.1,10.0.0.0/8")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.False(t, cfg.Mail.Secure)
	assert.Equal(t, "mailer@example.com", cfg.Mail.From, "from falls back to user")
	assert.True(t, cfg.Mail.MailEnabled())
	assert.Equal(t, "sales@example.com", cfg.Leads.NotifyTo)
	assert.Equal(t, "s3cret", cfg.Admin.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port, "invalid ints keep the configured value")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Server.TrustedProxies)
}
