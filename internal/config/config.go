package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GA4       GA4Config       `yaml:"ga4"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Host           string `yaml:"host"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Timeout returns the request timeout as a duration
func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GA4Config holds Google Analytics 4 Data API configuration
type GA4Config struct {
	PropertyID      string   `yaml:"property_id"`
	PropertyIDs     []string `yaml:"property_ids"`
	Timezone        string   `yaml:"timezone"`
	DaysBack        int      `yaml:"days_back"`
	CredentialsJSON string   `yaml:"credentials_json"`
	CredentialsFile string   `yaml:"credentials_file"`
	BaseURL         string   `yaml:"base_url"`
	MaxRetries      int      `yaml:"max_retries"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c GA4Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location resolves the configured timezone, falling back to UTC when the
// name does not load.
func (c GA4Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Properties returns every configured property id, the single property first.
func (c GA4Config) Properties() []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range append([]string{c.PropertyID}, c.PropertyIDs...) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// WarehouseConfig holds destination warehouse configuration. Dialect selects
// which connection fields apply.
type WarehouseConfig struct {
	Dialect     string `yaml:"dialect"` // "snowflake" or "postgres"
	Dataset     string `yaml:"dataset"`
	TablePrefix string `yaml:"table_prefix"`
	ChunkSize   int    `yaml:"chunk_size"`

	// Snowflake
	Account       string `yaml:"account"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Database      string `yaml:"database"`
	SnowWarehouse string `yaml:"warehouse"`

	// Postgres
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SnowflakeDSN builds the gosnowflake connection string:
// user:password@account/database/schema?warehouse=W
func (c WarehouseConfig) SnowflakeDSN() string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s", c.User, c.Password, c.Account, c.Database, c.Dataset)
	if c.SnowWarehouse != "" {
		dsn += "?warehouse=" + c.SnowWarehouse
	}
	return dsn
}

// SecretsConfig holds AWS Secrets Manager settings for the credential chain
type SecretsConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Region              string `yaml:"region"`
	CredentialsSecretID string `yaml:"credentials_secret_id"`
}

// ArchiveConfig holds the optional S3 raw-response archive settings
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// RedisConfig holds the optional run-lock Redis settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Redact *bool  `yaml:"redact"`
}

// RedactSecrets reports whether secret redaction is on; it defaults on.
func (c LoggingConfig) RedactSecrets() bool {
	return c.Redact == nil || *c.Redact
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

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 60
	}
	if cfg.GA4.Timezone == "" {
		cfg.GA4.Timezone = "America/Sao_Paulo"
	}
	if cfg.GA4.DaysBack == 0 {
		cfg.GA4.DaysBack = 1
	}
	if cfg.GA4.BaseURL == "" {
		cfg.GA4.BaseURL = "https://analyticsdata.googleapis.com/v1beta"
	}
	if cfg.GA4.MaxRetries == 0 {
		cfg.GA4.MaxRetries = 3
	}
	if cfg.GA4.TimeoutSeconds == 0 {
		cfg.GA4.TimeoutSeconds = 60
	}
	if cfg.Warehouse.Dialect == "" {
		cfg.Warehouse.Dialect = "snowflake"
	}
	if cfg.Warehouse.Dataset == "" {
		cfg.Warehouse.Dataset = "GA4_CAMPAIGN"
	}
	if cfg.Warehouse.ChunkSize == 0 {
		cfg.Warehouse.ChunkSize = 500
	}
	if cfg.Secrets.Region == "" {
		cfg.Secrets.Region = "us-east-1"
	}
	if cfg.Secrets.CredentialsSecretID == "" {
		cfg.Secrets.CredentialsSecretID = "ga4-credentials"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "ga4-raw"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("GA4_PROPERTY_ID"); v != "" {
		cfg.GA4.PropertyID = v
	}
	if v := os.Getenv("GA4_TIMEZONE"); v != "" {
		cfg.GA4.Timezone = v
	}
	if v := os.Getenv("GA4_CREDENTIALS_JSON"); v != "" {
		cfg.GA4.CredentialsJSON = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.GA4.CredentialsFile == "" {
		cfg.GA4.CredentialsFile = v
	}
	if v := os.Getenv("WAREHOUSE_DIALECT"); v != "" {
		cfg.Warehouse.Dialect = v
	}
	if v := os.Getenv("WAREHOUSE_DATASET"); v != "" {
		cfg.Warehouse.Dataset = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Warehouse.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Warehouse.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Warehouse.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_DATABASE"); v != "" {
		cfg.Warehouse.Database = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Warehouse.SnowWarehouse = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Warehouse.PostgresDSN = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Secrets.Region = v
		if cfg.Archive.Region == "" {
			cfg.Archive.Region = v
		}
	}
	if v := os.Getenv("SECRET_ID_CREDENTIALS"); v != "" {
		cfg.Secrets.CredentialsSecretID = v
		cfg.Secrets.Enabled = true
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
