package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvStorageKind    = "LIBRARY_STORAGE_KIND"
	EnvDataDirectory  = "LIBRARY_DATA_DIR"
	EnvDBDriver       = "LIBRARY_DB_DRIVER"
	EnvDBDSN          = "LIBRARY_DB_DSN"
	EnvDBCreateSchema = "LIBRARY_DB_CREATE_SCHEMA"
	EnvLookupBaseURL  = "LIBRARY_LOOKUP_BASE_URL"
	EnvLookupAPIKey   = "LIBRARY_LOOKUP_API_KEY"
	EnvLookupTimeout  = "LIBRARY_LOOKUP_TIMEOUT"
	EnvLogLevel       = "LIBRARY_LOG_LEVEL"
	EnvLogFormat      = "LIBRARY_LOG_FORMAT"
	EnvTelemetry      = "LIBRARY_TELEMETRY"
	EnvTelemetryName  = "LIBRARY_TELEMETRY_SERVICE_NAME"
	EnvOTLPEndpoint   = "LIBRARY_OTLP_ENDPOINT"
	EnvOTLPInsecure   = "LIBRARY_OTLP_INSECURE"

	defaultDotEnvFile = ".env"
)

// ErrLoadingDotEnvFailed is returned when a .env file exists but cannot be parsed.
var ErrLoadingDotEnvFailed = errors.New("loading .env file failed")

// loadDotEnv loads the given files, or ".env" when none are given, into the process environment.
// Missing files are skipped. Variables that are already set are not overwritten.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{defaultDotEnvFile}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return errors.Join(ErrLoadingDotEnvFailed, fmt.Errorf("%s: %w", file, err))
		}
	}

	return nil
}

// applyEnvOverrides copies every non-empty LIBRARY_* variable over the loaded values.
// Booleans that do not parse count as false.
func (c *Config) applyEnvOverrides(lookupEnv func(string) (string, bool)) {
	set := func(key string, target *string) {
		if value, ok := lookupEnv(key); ok && value != "" {
			*target = strings.TrimSpace(value)
		}
	}

	setBool := func(key string, target *bool) {
		if value, ok := lookupEnv(key); ok {
			*target = parseBool(value)
		}
	}

	set(EnvStorageKind, &c.Storage.Kind)
	set(EnvDataDirectory, &c.Storage.Directory)
	set(EnvDBDriver, &c.Storage.Driver)
	set(EnvDBDSN, &c.Storage.DSN)
	setBool(EnvDBCreateSchema, &c.Storage.CreateSchema)
	set(EnvLookupBaseURL, &c.Lookup.BaseURL)
	set(EnvLookupAPIKey, &c.Lookup.APIKey)
	set(EnvLookupTimeout, &c.Lookup.Timeout)
	set(EnvLogLevel, &c.Logging.Level)
	set(EnvLogFormat, &c.Logging.Format)
	setBool(EnvTelemetry, &c.Telemetry.Enabled)
	set(EnvTelemetryName, &c.Telemetry.ServiceName)
	set(EnvOTLPEndpoint, &c.Telemetry.OTLPEndpoint)
	setBool(EnvOTLPInsecure, &c.Telemetry.Insecure)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false
	}

	return b
}
