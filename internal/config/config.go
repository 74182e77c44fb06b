package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Env         string            `yaml:"env"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Search      SearchConfig      `yaml:"search"`
	Uploads     UploadsConfig     `yaml:"uploads"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Leads       LeadsConfig       `yaml:"leads"`
	Admin       AdminConfig       `yaml:"admin"`
	Mail        MailConfig        `yaml:"mail"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the client IP is always the peer address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // postgres, mysql, sqlite
	URL      string         `yaml:"url"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	LogSQL   bool           `yaml:"log_sql"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains the SQLite file path used for local development
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// UploadsConfig contains local file storage settings
type UploadsConfig struct {
	Dir         string `yaml:"dir"`
	PublicPath  string `yaml:"public_path"`
	Placeholder string `yaml:"placeholder"`
}

// CatalogConfig contains public listing settings
type CatalogConfig struct {
	PageSize           int  `yaml:"page_size"`
	FeaturedLimit      int  `yaml:"featured_limit"`
	PropertyTypeFilter bool `yaml:"property_type_filter"`
}

// LeadsConfig contains lead intake settings
type LeadsConfig struct {
	RateLimitMax           int    `yaml:"rate_limit_max"`
	RateLimitWindowMinutes int    `yaml:"rate_limit_window_minutes"`
	NotifyTo               string `yaml:"notify_to"`
	ListLimit              int    `yaml:"list_limit"`
	ExportLimit            int    `yaml:"export_limit"`
}

// AdminConfig contains back office authentication settings
type AdminConfig struct {
	Password       string `yaml:"password"`
	PasswordHash   string `yaml:"password_hash"`
	SessionSecret  string `yaml:"session_secret"`
	SessionDays    int    `yaml:"session_days"`
	Email          string `yaml:"email"`
	LoginPerMinute int    `yaml:"login_per_minute"`
	LoginPerHour   int    `yaml:"login_per_hour"`
}

// MailConfig contains SMTP settings
type MailConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Secure             bool   `yaml:"secure"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	From               string `yaml:"from"`
	PollIntervalSecond int    `yaml:"poll_interval_seconds"`
	MaxAttempts        int    `yaml:"max_attempts"`
}

// MaintenanceConfig contains scheduled housekeeping settings
type MaintenanceConfig struct {
	DailyRunEnabled       bool   `yaml:"daily_run_enabled"`
	DailyRunTime          string `yaml:"daily_run_time"`
	RateLimitRetentionHrs int    `yaml:"rate_limit_retention_hours"`
	SweepOrphanUploads    bool   `yaml:"sweep_orphan_uploads"`
	ReindexSearch         bool   `yaml:"reindex_search"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string       `yaml:"level"`
	Format      string       `yaml:"format"` // text, json
	Color       bool         `yaml:"color"`
	LogRequests bool         `yaml:"log_requests"`
	Fluent      FluentConfig `yaml:"fluent"`
}

// FluentConfig contains Fluent Bit forwarding settings
type FluentConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TagPrefix string `yaml:"tag_prefix"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxUploadMB:    32,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "grahalia",
				Database: "grahalia",
				SSLMode:  "disable",
			},
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "grahalia",
				Database: "grahalia",
			},
			SQLite: SQLiteConfig{Path: "grahalia.db"},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://localhost:7700",
				Index: "properties",
			},
		},
		Uploads: UploadsConfig{
			Dir:         "public/uploads",
			PublicPath:  "/uploads",
			Placeholder: "/properties/p1.jpg",
		},
		Catalog: CatalogConfig{
			PageSize:      12,
			FeaturedLimit: 6,
		},
		Leads: LeadsConfig{
			RateLimitMax:           5,
			RateLimitWindowMinutes: 10,
			ListLimit:              200,
			ExportLimit:            5000,
		},
		Admin: AdminConfig{
			SessionDays:    7,
			LoginPerMinute: 10,
			LoginPerHour:   30,
		},
		Mail: MailConfig{
			Port:               465,
			Secure:             true,
			PollIntervalSecond: 15,
			MaxAttempts:        5,
		},
		Maintenance: MaintenanceConfig{
			DailyRunEnabled:       true,
			DailyRunTime:          "03:30",
			RateLimitRetentionHrs: 24,
			ReindexSearch:         true,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			Color:       true,
			LogRequests: true,
			Fluent: FluentConfig{
				Host:      "127.0.0.1",
				Port:      24224,
				TagPrefix: "grahalia",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads .env (if present), the YAML file at CONFIG_PATH and applies
// environment overrides on top.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config/site.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when they are set
func (c *Config) ApplyEnv() {
	c.Env = getEnvOrConfig(c.Env, "APP_ENV")
	c.Server.Port = getEnvOrConfig(c.Server.Port, "PORT")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		c.Server.TrustedProxies = splitList(proxies)
	}

	c.Database.Driver = getEnvOrConfig(c.Database.Driver, "DB_DRIVER")
	c.Database.URL = getEnvOrConfig(c.Database.URL, "DATABASE_URL")
	switch c.Database.Driver {
	case "mysql":
		c.Database.MySQL.Host = getEnvOrConfig(c.Database.MySQL.Host, "DB_HOST")
		c.Database.MySQL.Port = getEnvAsInt("DB_PORT", c.Database.MySQL.Port)
		c.Database.MySQL.User = getEnvOrConfig(c.Database.MySQL.User, "DB_USER")
		c.Database.MySQL.Password = getEnvOrConfig(c.Database.MySQL.Password, "DB_PASSWORD")
		c.Database.MySQL.Database = getEnvOrConfig(c.Database.MySQL.Database, "DB_NAME")
	case "sqlite":
		c.Database.SQLite.Path = getEnvOrConfig(c.Database.SQLite.Path, "DB_PATH")
	default:
		c.Database.Postgres.Host = getEnvOrConfig(c.Database.Postgres.Host, "DB_HOST")
		c.Database.Postgres.Port = getEnvAsInt("DB_PORT", c.Database.Postgres.Port)
		c.Database.Postgres.User = getEnvOrConfig(c.Database.Postgres.User, "DB_USER")
		c.Database.Postgres.Password = getEnvOrConfig(c.Database.Postgres.Password, "DB_PASSWORD")
		c.Database.Postgres.Database = getEnvOrConfig(c.Database.Postgres.Database, "DB_NAME")
		c.Database.Postgres.SSLMode = getEnvOrConfig(c.Database.Postgres.SSLMode, "DB_SSLMODE")
	}

	c.Search.Meilisearch.Host = getEnvOrConfig(c.Search.Meilisearch.Host, "MEILISEARCH_HOST")
	c.Search.Meilisearch.APIKey = getEnvOrConfig(c.Search.Meilisearch.APIKey, "MEILISEARCH_KEY")
	c.Search.Meilisearch.Enabled = getEnvAsBool("MEILISEARCH_ENABLED", c.Search.Meilisearch.Enabled)

	c.Uploads.Dir = getEnvOrConfig(c.Uploads.Dir, "UPLOADS_DIR")

	c.Admin.Password = getEnvOrConfig(c.Admin.Password, "ADMIN_PASSWORD")
	c.Admin.PasswordHash = getEnvOrConfig(c.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	c.Admin.SessionSecret = getEnvOrConfig(c.Admin.SessionSecret, "SESSION_SECRET")
	c.Admin.Email = getEnvOrConfig(c.Admin.Email, "ADMIN_EMAIL")

	c.Leads.NotifyTo = getEnvOrConfig(c.Leads.NotifyTo, "LEADS_NOTIFY_TO")

	c.Mail.Host = getEnvOrConfig(c.Mail.Host, "SMTP_HOST")
	c.Mail.Port = getEnvAsInt("SMTP_PORT", c.Mail.Port)
	c.Mail.Secure = getEnvAsBool("SMTP_SECURE", c.Mail.Secure)
	c.Mail.User = getEnvOrConfig(c.Mail.User, "SMTP_USER")
	c.Mail.Password = getEnvOrConfig(c.Mail.Password, "SMTP_PASS")
	c.Mail.From = getEnvOrConfig(c.Mail.From, "SMTP_FROM")
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.User
	}

	c.Logging.Level = getEnvOrConfig(c.Logging.Level, "LOG_LEVEL")
	c.Logging.Fluent.Enabled = getEnvAsBool("FLUENT_ENABLED", c.Logging.Fluent.Enabled)
	c.Logging.Fluent.Host = getEnvOrConfig(c.Logging.Fluent.Host, "FLUENT_HOST")
	c.Logging.Fluent.Port = getEnvAsInt("FLUENT_PORT", c.Logging.Fluent.Port)
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MailEnabled reports whether SMTP delivery is configured
func (c *MailConfig) MailEnabled() bool {
	return c.Host != "" && c.From != ""
}

// RateLimitWindow returns the lead rate limit window as a duration
func (c *LeadsConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

// SessionTTL returns the admin session lifetime
func (c *AdminConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionDays) * 24 * time.Hour
}

// PollInterval returns the notification worker poll interval
func (c *MailConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecond) * time.Second
}

// RateLimitRetention returns how long rate limit log rows are kept
func (c *MaintenanceConfig) RateLimitRetention() time.Duration {
	return time.Duration(c.RateLimitRetentionHrs) * time.Hour
}

// MaxUploadBytes returns the multipart memory limit
func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvOrConfig(configValue, envKey string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return configValue
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
