package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"fleet-asset-report/internal/errors"
	"fleet-asset-report/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "ASSET_REPORT"

	SourceFile   = "file"
	SourceSQLite = "sqlite"

	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	DefaultDataDir          = "files"
	DefaultTripFile         = "Trip-Info.csv"
	DefaultTelemetryArchive = "NU-raw-location-dump.zip"
	DefaultDBPath           = "asset_report.db"
	DefaultPort             = 8080
	DefaultLogLevel         = "info"
)

type Config struct {
	DataDir          string `mapstructure:"data_dir"`
	TripFile         string `mapstructure:"trip_file"`
	TelemetryArchive string `mapstructure:"telemetry_archive"`
	Source           string `mapstructure:"source"`
	DBPath           string `mapstructure:"db_path"`
	Port             int    `mapstructure:"port"`
	LogLevel         string `mapstructure:"log_level"`
	Format           string `mapstructure:"format"`
}

// TripPath is the trip log location inside the data directory.
func (c *Config) TripPath() string {
	return filepath.Join(c.DataDir, c.TripFile)
}

// TelemetryPath is the telemetry archive location inside the data directory.
func (c *Config) TelemetryPath() string {
	return filepath.Join(c.DataDir, c.TelemetryArchive)
}

func (c *Config) Validate() error {
	switch c.Source {
	case SourceFile, SourceSQLite:
	default:
		return errors.New(errors.ErrInvalidConfig).WithData("source=" + c.Source)
	}

	switch c.Format {
	case FormatXLSX, FormatCSV:
	default:
		return errors.New(errors.ErrInvalidConfig).WithData("format=" + c.Format)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return errors.New(errors.ErrInvalidConfig).WithData(fmt.Sprintf("port=%d", c.Port))
	}

	if c.Source == SourceSQLite && c.DBPath == "" {
		return errors.New(errors.ErrInvalidConfig).WithData("db_path is required for sqlite source")
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("trip_file", DefaultTripFile)
	v.SetDefault("telemetry_archive", DefaultTelemetryArchive)
	v.SetDefault("source", SourceFile)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("format", FormatXLSX)
}

// Load resolves configuration from defaults, an optional config file,
// ASSET_REPORT_* environment variables and flags, in increasing priority.
// Flag names use dashes; they are matched to keys with underscores.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("asset-report")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/asset-report")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isConfigKey(key) {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, errors.Wrap(errors.ErrReadConfig, bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrReadConfig, err)
	}

	cfg.Source = strings.ToLower(cfg.Source)
	cfg.Format = strings.ToLower(cfg.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var configKeys = map[string]struct{}{
	"data_dir": {}, "trip_file": {}, "telemetry_archive": {}, "source": {},
	"db_path": {}, "port": {}, "log_level": {}, "format": {},
}

func isConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}
