package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Layout selects how the backup directory is organized.
type Layout string

const (
	// LayoutDaily groups archives into one directory per calendar day.
	LayoutDaily Layout = "daily"
	// LayoutFlat keeps every archive directly under the backup directory.
	LayoutFlat Layout = "flat"
)

// Config is the top-level YAML configuration file.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Backup    BackupConfig    `mapstructure:"backup"    yaml:"backup"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"  yaml:"watchdog"`
}

// ServerConfig describes the supervised server process.
type ServerConfig struct {
	Dir         string `mapstructure:"dir"          yaml:"dir"`
	Jar         string `mapstructure:"jar"          yaml:"jar"`
	SessionName string `mapstructure:"session_name" yaml:"session_name"`
	JavaMemory  string `mapstructure:"java_memory"  yaml:"java_memory"`
}

// BackupConfig contains global backup options.
type BackupConfig struct {
	Dir       string `mapstructure:"dir"       yaml:"dir"`
	Layout    Layout `mapstructure:"layout"    yaml:"layout"`
	Retention int    `mapstructure:"retention" yaml:"retention"`
}

// SchedulerConfig controls the automatic backup loop.
type SchedulerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     yaml:"interval"`
	SessionName string        `mapstructure:"session_name" yaml:"session_name"`
}

// WatchdogConfig controls the crash-restart loop.
type WatchdogConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// JarPath returns the absolute path of the server jar.
func (s ServerConfig) JarPath() string {
	return filepath.Join(s.Dir, s.Jar)
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("server.dir", filepath.Join(home, "minecraft-server"))
	v.SetDefault("server.jar", "server.jar")
	v.SetDefault("server.session_name", "minecraft")
	v.SetDefault("server.java_memory", "4G")
	v.SetDefault("backup.dir", filepath.Join(home, "minecraft-backups"))
	v.SetDefault("backup.layout", string(LayoutDaily))
	v.SetDefault("backup.retention", 7)
	v.SetDefault("scheduler.interval", "60m")
	v.SetDefault("scheduler.session_name", "mcutil-scheduler")
	v.SetDefault("watchdog.interval", "30s")
}

// Load reads the configuration at path using Viper and unmarshals it into c.
// A missing file is not an error: defaults apply.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound *os.PathError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.UnmarshalExact(c, decodeHook); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return nil
}

// Validate checks paths and settings before any side effect is attempted.
func (c *Config) Validate() error {
	if _, err := os.Stat(c.Server.Dir); err != nil {
		return fmt.Errorf("%w: server directory %q: %v", ErrValidateConfig, c.Server.Dir, err)
	}
	if _, err := os.Stat(c.Server.JarPath()); err != nil {
		return fmt.Errorf("%w: server jar %q: %v", ErrValidateConfig, c.Server.JarPath(), err)
	}
	if c.Backup.Layout != LayoutDaily && c.Backup.Layout != LayoutFlat {
		return fmt.Errorf("%w: unknown backup layout %q", ErrValidateConfig, c.Backup.Layout)
	}
	if err := os.MkdirAll(c.Backup.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create backup directory %q: %v", ErrValidateConfig, c.Backup.Dir, err)
	}
	return nil
}
