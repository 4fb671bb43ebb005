package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage kinds.
const (
	StorageJSON     = "json"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// PostgreSQL client libraries.
const (
	DriverPGX  = "pgx"
	DriverSQL  = "sql"
	DriverSQLX = "sqlx"
)

var (
	// ErrReadingConfigFailed is returned when the config file exists but cannot be read.
	ErrReadingConfigFailed = errors.New("reading config file failed")

	// ErrParsingConfigFailed is returned when the config file is not valid YAML.
	ErrParsingConfigFailed = errors.New("parsing config file failed")

	// ErrInvalidConfig is returned when the merged configuration is unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the complete process configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Kind string `yaml:"kind"` // json, postgres, sqlite

	// Directory holds the JSON files for kind json.
	Directory string `yaml:"directory"`

	// Driver picks the PostgreSQL client library: pgx, sql, or sqlx.
	Driver string `yaml:"driver"`

	// DSN is the PostgreSQL connection string, or the database file for kind sqlite.
	DSN string `yaml:"dsn"`

	CreateSchema bool       `yaml:"create_schema"`
	Tables       TableNames `yaml:"tables"`
	Pool         PoolConfig `yaml:"pool"`
}

// TableNames overrides the relational table names.
type TableNames struct {
	Books     string `yaml:"books"`
	Customers string `yaml:"customers"`
	Loans     string `yaml:"loans"`
}

// PoolConfig holds connection pool limits. Durations use time.ParseDuration syntax.
type PoolConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MinConns        int    `yaml:"min_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
	ConnectTimeout  string `yaml:"connect_timeout"`
}

// LookupConfig parameterizes the bibliographic lookup client.
type LookupConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig switches the OpenTelemetry adapters on.
// With an OTLP endpoint the process exports logs, metrics, and traces via gRPC,
// without one it reports to whatever global providers are installed.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Default returns the configuration used when no file and no environment overrides exist:
// JSON files in the working directory, which is where the legacy tool kept them.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Kind:      StorageJSON,
			Directory: ".",
			Driver:    DriverPGX,
			Tables: TableNames{
				Books:     "books",
				Customers: "customers",
				Loans:     "loans",
			},
			Pool: PoolConfig{
				MaxOpenConns:    20,
				MinConns:        2,
				MaxIdleConns:    2,
				ConnMaxLifetime: "1h",
				ConnMaxIdleTime: "5m",
				ConnectTimeout:  "5s",
			},
		},
		Lookup: LookupConfig{
			BaseURL: "https://www.googleapis.com/books/v1/volumes",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "librarian",
		},
	}
}

// Load builds the configuration from path (optional, a missing file is fine), the .env files
// (optional), and the environment.
func Load(path string, dotEnvFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, errors.Join(ErrReadingConfigFailed, err)
		default:
			if err = yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Join(ErrParsingConfigFailed, fmt.Errorf("%s: %w", path, err))
			}
		}
	}

	if err := loadDotEnv(dotEnvFiles...); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the combinations Load cannot fix by itself.
func (c *Config) Validate() error {
	switch c.Storage.Kind {
	case StorageJSON:
		if c.Storage.Directory == "" {
			return errors.Join(ErrInvalidConfig, errors.New("storage.directory must be set for json storage"))
		}

	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.Join(ErrInvalidConfig, errors.New("storage.dsn must be set for postgres storage"))
		}

		switch c.Storage.Driver {
		case DriverPGX, DriverSQL, DriverSQLX:
		default:
			return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
		}

	case StorageSQLite:
		if c.Storage.DSN == "" {
			return errors.Join(ErrInvalidConfig, errors.New("storage.dsn must name the sqlite database file"))
		}

	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown storage.kind %q", c.Storage.Kind))
	}

	durations := map[string]string{
		"storage.pool.conn_max_lifetime":  c.Storage.Pool.ConnMaxLifetime,
		"storage.pool.conn_max_idle_time": c.Storage.Pool.ConnMaxIdleTime,
		"storage.pool.connect_timeout":    c.Storage.Pool.ConnectTimeout,
		"lookup.timeout":                  c.Lookup.Timeout,
	}

	for key, value := range durations {
		if _, err := parseDuration(value); err != nil {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("%s: %w", key, err))
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}

// LookupTimeout returns the parsed lookup timeout, zero when unset.
func (c *Config) LookupTimeout() time.Duration {
	d, _ := parseDuration(c.Lookup.Timeout)
	return d
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	return time.ParseDuration(value)
}
