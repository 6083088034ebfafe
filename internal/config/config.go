package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownDriver       = errors.New("unknown warehouse driver")
	ErrMissingWarehouse    = errors.New("warehouse connection not configured")
	ErrMissingAPICreds     = errors.New("enterprise api credentials not configured")
	ErrInvalidPageSizes    = errors.New("invalid page size limits")
	ErrUnknownWeekStart    = errors.New("unknown week start")
	ErrInvalidTopN         = errors.New("top n must be positive")
	ErrInvalidCacheTimeout = errors.New("cache timeout must not be negative")
)

// Config holds all configuration for the analytics engine
type Config struct {
	Warehouse     WarehouseConfig     `yaml:"warehouse"`
	Redis         RedisConfig         `yaml:"redis"`
	Cache         CacheConfig         `yaml:"cache"`
	Analytics     AnalyticsConfig     `yaml:"analytics"`
	Export        ExportConfig        `yaml:"export"`
	EnterpriseAPI EnterpriseAPIConfig `yaml:"enterprise_api"`
	Log           LogConfig           `yaml:"log"`
}

// WarehouseConfig describes the fact warehouse connection. Driver is one of
// postgres, snowflake or sqlite3.
type WarehouseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`

	// Snowflake connection, either as discrete fields or as a
	// semicolon-separated connection string (ACCOUNT=...;USER=...;DB=db.schema).
	ConnectionString string `yaml:"connection_string"`
	Account          string `yaml:"account"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	Warehouse        string `yaml:"warehouse"`

	// Schema qualifies the fact table names in generated SQL.
	Schema string `yaml:"schema"`

	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	QueryTimeoutSeconds    int `yaml:"query_timeout_seconds"`
}

// ConnMaxLifetime returns the pool connection lifetime as a duration
func (c WarehouseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// QueryTimeout returns the per-query timeout; zero means none.
func (c WarehouseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// RedisConfig holds the shared cache connection
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the cache entry lifetime as a duration
func (c CacheConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AnalyticsConfig holds reporting defaults
type AnalyticsConfig struct {
	TopN            int    `yaml:"top_n"`
	WeekStart       string `yaml:"week_start"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// Weekday parses WeekStart.
func (c AnalyticsConfig) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(c.WeekStart, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekStart, c.WeekStart)
}

// ExportConfig holds CSV export delivery settings
type ExportConfig struct {
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Prefix     string `yaml:"prefix"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ExportConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// EnterpriseAPIConfig holds the enterprise membership API client settings
type EnterpriseAPIConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	TokenURL       string `yaml:"token_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the API timeout as a duration
func (c EnterpriseAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogConfig holds logger settings
type LogConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = "postgres"
	}
	if cfg.Warehouse.ConnectionString != "" {
		cfg.Warehouse.applyConnectionString()
	}
	if cfg.Warehouse.MaxOpenConns == 0 {
		cfg.Warehouse.MaxOpenConns = 5
	}
	if cfg.Warehouse.MaxIdleConns == 0 {
		cfg.Warehouse.MaxIdleConns = 2
	}
	if cfg.Warehouse.ConnMaxLifetimeMinutes == 0 {
		cfg.Warehouse.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.TimeoutSeconds == 0 {
		cfg.Cache.TimeoutSeconds = 3600
	}
	if cfg.Analytics.TopN == 0 {
		cfg.Analytics.TopN = 10
	}
	if cfg.Analytics.WeekStart == "" {
		cfg.Analytics.WeekStart = "monday"
	}
	if cfg.Analytics.DefaultPageSize == 0 {
		cfg.Analytics.DefaultPageSize = 50
	}
	if cfg.Analytics.MaxPageSize == 0 {
		cfg.Analytics.MaxPageSize = 1000
	}
	if cfg.Export.S3Region == "" {
		cfg.Export.S3Region = "us-east-1"
	}
	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = "exports"
	}
	if cfg.EnterpriseAPI.TimeoutSeconds == 0 {
		cfg.EnterpriseAPI.TimeoutSeconds = 30
	}
	if cfg.EnterpriseAPI.MaxRetries == 0 {
		cfg.EnterpriseAPI.MaxRetries = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is loaded first when present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("WAREHOUSE_DRIVER"); v != "" {
		cfg.Warehouse.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Warehouse.URL = v
	}
	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Warehouse.ConnectionString = v
		cfg.Warehouse.applyConnectionString()
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Warehouse.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Warehouse.Warehouse = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ANALYTICS_CACHE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_REGION"); v != "" {
		cfg.Export.S3Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Export.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Export.SecretKey = v
	}
	if v := os.Getenv("ENTERPRISE_API_BASE_URL"); v != "" {
		cfg.EnterpriseAPI.BaseURL = v
	}
	if v := os.Getenv("ENTERPRISE_API_CLIENT_ID"); v != "" {
		cfg.EnterpriseAPI.ClientID = v
	}
	if v := os.Getenv("ENTERPRISE_API_CLIENT_SECRET"); v != "" {
		cfg.EnterpriseAPI.ClientSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Warehouse.Driver {
	case "postgres", "sqlite3":
		if c.Warehouse.URL == "" {
			return fmt.Errorf("%w: %s requires url", ErrMissingWarehouse, c.Warehouse.Driver)
		}
	case "snowflake":
		if c.Warehouse.Account == "" || c.Warehouse.User == "" {
			return fmt.Errorf("%w: snowflake requires account and user", ErrMissingWarehouse)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Warehouse.Driver)
	}
	if c.Cache.TimeoutSeconds < 0 {
		return ErrInvalidCacheTimeout
	}
	if c.Analytics.TopN < 1 {
		return ErrInvalidTopN
	}
	if _, err := c.Analytics.Weekday(); err != nil {
		return err
	}
	if c.Analytics.DefaultPageSize < 1 || c.Analytics.MaxPageSize < c.Analytics.DefaultPageSize {
		return fmt.Errorf("%w: default %d, max %d", ErrInvalidPageSizes,
			c.Analytics.DefaultPageSize, c.Analytics.MaxPageSize)
	}
	if c.EnterpriseAPI.Enabled && (c.EnterpriseAPI.ClientID == "" || c.EnterpriseAPI.ClientSecret == "") {
		return ErrMissingAPICreds
	}
	return nil
}

// applyConnectionString fills the Snowflake fields from ConnectionString.
// Format: ACCOUNT=xxx;USER=zzz;PASSWORD=www;DB=database.schema;WAREHOUSE=wh
func (c *WarehouseConfig) applyConnectionString() {
	parts := make(map[string]string)
	for _, field := range strings.Split(c.ConnectionString, ";") {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = value
	}

	setIfEmpty := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setIfEmpty(&c.Account, parts["ACCOUNT"])
	setIfEmpty(&c.User, parts["USER"])
	setIfEmpty(&c.Password, parts["PASSWORD"])
	setIfEmpty(&c.Warehouse, parts["WAREHOUSE"])

	db, schema, _ := strings.Cut(parts["DB"], ".")
	setIfEmpty(&c.Database, db)
	setIfEmpty(&c.Schema, schema)
}
