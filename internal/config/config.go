package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/it-Barath/fpms-sub006/common/config"

	"gopkg.in/yaml.v3"
)

const (
	ReferenceSourceDB   = "db"
	ReferenceSourceHTTP = "http"

	// MaxListingLimit caps row-level reports regardless of configuration.
	MaxListingLimit = 1000
)

// Config fpms-reports configuration. Values come from an optional YAML file
// (CONFIG_FILE) and are then overridden by environment variables.
type Config struct {
	HTTP struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Reference ReferenceConfig          `yaml:"reference"`
	Redis     struct {
		Enabled bool                  `yaml:"enabled"`
		Config  commoncfg.RedisConfig `yaml:",inline"`
	} `yaml:"redis"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Report ReportConfig `yaml:"report"`
}

// ReferenceConfig where the external hierarchy reference table lives.
type ReferenceConfig struct {
	Source   string                    `yaml:"source"` // db | http
	Schema   string                    `yaml:"schema"` // schema holding gn_divisions when Source=db
	Database *commoncfg.DatabaseConfig `yaml:"database,omitempty"`
	HTTPURL  string                    `yaml:"http_url"`
	Timeout  time.Duration             `yaml:"timeout"`
}

// ReportConfig report generation limits and policy switches.
type ReportConfig struct {
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	ListingLimit      int           `yaml:"listing_limit"`
	StrictReportTypes bool          `yaml:"strict_report_types"`
	ActivityStream    string        `yaml:"activity_stream"`
	ActivityStreamLen int64         `yaml:"activity_stream_len"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "fpms",
		SSLMode:  "disable",
		MaxConns: 25,
		MaxIdle:  5,
	}
	cfg.Reference.Source = ReferenceSourceDB
	cfg.Reference.Schema = "fpms"
	cfg.Reference.Timeout = 10 * time.Second
	cfg.Redis.Enabled = false
	cfg.Redis.Config.Addr = "localhost:6379"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Report.QueryTimeout = 30 * time.Second
	cfg.Report.ListingLimit = MaxListingLimit
	cfg.Report.ActivityStream = "fpms:report-activity"
	cfg.Report.ActivityStreamLen = 10000
	return cfg
}

// Load builds the configuration: defaults, then CONFIG_FILE, then environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.HTTP.CORSAllowedOrigins = splitList(origins)
	}

	c.DBEnabled = parseBool(getEnv("DB_ENABLED", ""), c.DBEnabled)
	c.Database.LoadFromEnv("DB")

	c.Reference.Source = strings.ToLower(getEnv("REFERENCE_SOURCE", c.Reference.Source))
	c.Reference.Schema = getEnv("REFERENCE_SCHEMA", c.Reference.Schema)
	c.Reference.HTTPURL = getEnv("REFERENCE_HTTP_URL", c.Reference.HTTPURL)
	if os.Getenv("REFERENCE_DB_HOST") != "" || os.Getenv("REFERENCE_DB_NAME") != "" {
		ref := c.Database
		if c.Reference.Database != nil {
			ref = *c.Reference.Database
		}
		ref.LoadFromEnv("REFERENCE_DB")
		c.Reference.Database = &ref
	}

	c.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", ""), c.Redis.Enabled)
	c.Redis.Config.LoadFromEnv("REDIS")

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if secs := parseInt(getEnv("REPORT_QUERY_TIMEOUT", ""), 0); secs > 0 {
		c.Report.QueryTimeout = time.Duration(secs) * time.Second
	}
	c.Report.ListingLimit = parseInt(getEnv("REPORT_LISTING_LIMIT", ""), c.Report.ListingLimit)
	c.Report.StrictReportTypes = parseBool(getEnv("STRICT_REPORT_TYPES", ""), c.Report.StrictReportTypes)
	c.Report.ActivityStream = getEnv("ACTIVITY_STREAM", c.Report.ActivityStream)
}

// Validate rejects settings the service cannot run with. The listing limit is
// clamped rather than rejected.
func (c *Config) Validate() error {
	if c.Report.QueryTimeout <= 0 {
		return fmt.Errorf("report query timeout must be positive, got %s", c.Report.QueryTimeout)
	}
	if c.Report.ListingLimit <= 0 {
		return fmt.Errorf("report listing limit must be positive, got %d", c.Report.ListingLimit)
	}
	if c.Report.ListingLimit > MaxListingLimit {
		c.Report.ListingLimit = MaxListingLimit
	}
	switch c.Reference.Source {
	case ReferenceSourceDB:
	case ReferenceSourceHTTP:
		if c.Reference.HTTPURL == "" {
			return fmt.Errorf("REFERENCE_HTTP_URL is required when REFERENCE_SOURCE=http")
		}
	default:
		return fmt.Errorf("unknown reference source %q", c.Reference.Source)
	}
	return nil
}

// ReferenceDatabase returns the connection settings for the reference schema;
// it is the primary database unless a separate one was configured.
func (c *Config) ReferenceDatabase() *commoncfg.DatabaseConfig {
	if c.Reference.Database != nil {
		return c.Reference.Database
	}
	return &c.Database
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
