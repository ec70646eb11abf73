package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/swarmdb"
	"github.com/hupe1980/swarmdb/internal/resource"
)

// Config is the CLI configuration, read from swarmdb.yaml, SWARMDB_*
// environment variables and flags, in increasing priority.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Resource ResourceConfig `mapstructure:"resource"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SnapshotConfig struct {
	AbsErr float64 `mapstructure:"abs_err"`
	RelErr float64 `mapstructure:"rel_err"`
}

// ArchiveConfig selects the blob store runs are pushed to.
type ArchiveConfig struct {
	// Backend is one of local, s3 or minio.
	Backend      string `mapstructure:"backend"`
	Dir          string `mapstructure:"dir"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Secure       bool   `mapstructure:"secure"`
	Compression  string `mapstructure:"compression"`
	CatalogTable string `mapstructure:"catalog_table"`
	Concurrency  int    `mapstructure:"concurrency"`
}

type ResourceConfig struct {
	MemoryLimit  int64 `mapstructure:"memory_limit"`
	IOLimit      int64 `mapstructure:"io_limit"`
	MaxTransfers int64 `mapstructure:"max_transfers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("snapshot.abs_err", 1e-4)
	v.SetDefault("snapshot.rel_err", 1e-8)
	v.SetDefault("archive.backend", "local")
	v.SetDefault("archive.dir", "swarmdb-archive")
	v.SetDefault("archive.prefix", "runs")
	v.SetDefault("archive.compression", "zstd")
	v.SetDefault("archive.secure", true)
	v.SetDefault("archive.concurrency", 4)
	v.SetDefault("resource.memory_limit", 0)
	v.SetDefault("resource.io_limit", 0)
	v.SetDefault("resource.max_transfers", 4)
}

// globalFlags registers the flags shared by all commands.
func globalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to the config file (default ./swarmdb.yaml)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")
}

// loadConfig builds the configuration. Flags that were set override the
// file and environment.
func loadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/swarmdb")
		}
		v.SetConfigName("swarmdb")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SWARMDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, flag := range map[string]string{"log.level": "log-level", "log.format": "log-format"} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) logger() (*swarmdb.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return swarmdb.NewTextLogger(level), nil
	case "json":
		return swarmdb.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
}

func (c *Config) resources() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.Resource.MemoryLimit,
		MaxTransfers:       c.Resource.MaxTransfers,
		IOLimitBytesPerSec: c.Resource.IOLimit,
	})
}
