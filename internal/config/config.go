package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/risklab/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Client   ClientConfig   `mapstructure:"client"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	APIKey         string   `mapstructure:"api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TemplatesDir   string   `mapstructure:"templates_dir"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"` // "memory" or "postgres"
	DSN            string        `mapstructure:"dsn"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

// RunnerConfig controls how strategy code is executed.
type RunnerConfig struct {
	PythonCommand string        `mapstructure:"python_command"`
	Timeout       time.Duration `mapstructure:"timeout"`
	WorkDir       string        `mapstructure:"work_dir"`
}

// ExecutorConfig bounds batch execution.
type ExecutorConfig struct {
	MaxWorkers   int           `mapstructure:"max_workers"`
	RatePerSec   float64       `mapstructure:"rate_per_sec"`
	MaxQueued    int           `mapstructure:"max_queued"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifierConfig configures the batch completion webhook.
type NotifierConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// EditorConfig overrides the embedded code editor setup.
type EditorConfig struct {
	Languages []string `mapstructure:"languages"`
	Features  []string `mapstructure:"features"`
}

// ClientConfig is used by the CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("RISKLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("runner.python_command", d.Runner.PythonCommand)
	v.SetDefault("runner.timeout", d.Runner.Timeout)
	v.SetDefault("executor.max_workers", d.Executor.MaxWorkers)
	v.SetDefault("executor.rate_per_sec", d.Executor.RatePerSec)
	v.SetDefault("executor.max_queued", d.Executor.MaxQueued)
	v.SetDefault("executor.batch_timeout", d.Executor.BatchTimeout)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Driver:         "memory",
			MaxConns:       10,
			ConnectTimeout: 30 * time.Second,
			AutoMigrate:    true,
		},
		Runner: RunnerConfig{
			PythonCommand: "python3",
			Timeout:       30 * time.Second,
		},
		Executor: ExecutorConfig{
			MaxWorkers:   8,
			RatePerSec:   20,
			MaxQueued:    16,
			BatchTimeout: 10 * time.Minute,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "data/reports",
		},
		Client: ClientConfig{
			Timeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("database dsn required when driver is postgres"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if c.Runner.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("runner timeout must be positive, got %s", c.Runner.Timeout))
	}

	if c.Executor.MaxWorkers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("executor max_workers must be at least 1, got %d", c.Executor.MaxWorkers))
	}
	if c.Executor.RatePerSec < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("executor rate_per_sec cannot be negative, got %f", c.Executor.RatePerSec))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required when type is localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive s3 bucket required when type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	if c.Notifier.Enabled && c.Notifier.URL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notifier url required when notifier is enabled"))
	}

	return nil
}
