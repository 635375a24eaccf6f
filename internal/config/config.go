// Package config loads the edge node's runtime configuration from
// environment variables (and matching cobra/viper flags), failing fast if
// a required value is missing — the same 12-Factor posture the teacher's
// database.GetDatabaseDSN() enforces for its own DB_DSN.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the fully-resolved set of values every server command needs.
type Config struct {
	MongoURI         string
	DatabaseName     string
	HostRemoteURL    string
	DeviceConfigPath string
	Port             string
	LogLevel         string
	LogFormat        string
	AppEnv           string
}

// Load reads configuration from viper (environment variables bound by
// cmd/root.go, overridable by flags) and validates required fields.
// Required: MONGO_URI, DATABASE_NAME, HOST_REMOTE_URL. DEVICE_CONFIG_PATH,
// PORT, LOG_LEVEL and LOG_FORMAT have defaults (set in cmd/root.go, the
// teacher's viper.SetDefault convention); APP_ENV has none and may be empty.
func Load() (*Config, error) {
	cfg := &Config{
		MongoURI:         viper.GetString("mongo_uri"),
		DatabaseName:     viper.GetString("database_name"),
		HostRemoteURL:    viper.GetString("host_remote_url"),
		DeviceConfigPath: viper.GetString("device_config_path"),
		Port:             viper.GetString("port"),
		LogLevel:         viper.GetString("log_level"),
		LogFormat:        viper.GetString("log_format"),
		AppEnv:           viper.GetString("app_env"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("config: MONGO_URI is required")
	}
	if cfg.DatabaseName == "" {
		return nil, fmt.Errorf("config: DATABASE_NAME is required")
	}
	if cfg.HostRemoteURL == "" {
		return nil, fmt.Errorf("config: HOST_REMOTE_URL is required")
	}

	return cfg, nil
}
