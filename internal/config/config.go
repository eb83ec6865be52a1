package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable the installer consumes:
// DOTFILES_ROOT, DOTFILES_PLATFORM, DOTFILES_LOG_LEVEL, DOTFILES_LOG_FILE,
// DOTFILES_INTERACTIVE, DOTFILES_DRY_RUN.
const EnvPrefix = "DOTFILES"

// ConfigFileName is the optional per-tree config file under the modules root.
const ConfigFileName = "config.yaml"

// Settings is the resolved runtime configuration. Precedence, highest first:
// CLI flags (applied by the cmd layer), environment, config file, defaults.
type Settings struct {
	// Root is the directory containing module directories.
	Root string `mapstructure:"root"`

	// Platform forces the detector's result when set to a supported name.
	Platform string `mapstructure:"platform"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// LogRetentionDays bounds how long rotated log files are kept.
	LogRetentionDays int `mapstructure:"log_retention_days"`

	// Interactive enables confirmation prompts for destructive operations.
	Interactive bool `mapstructure:"interactive"`

	DryRun bool `mapstructure:"dry_run"`
}

func defaults() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Settings{
		Root:             filepath.Join(home, ".dotfiles"),
		LogLevel:         "INFO",
		LogRetentionDays: 30,
		Interactive:      true,
	}
}

// Load resolves Settings from defaults, the optional config.yaml under the
// modules root, and DOTFILES_* environment variables.
func Load() (Settings, error) {
	v := viper.New()

	def := defaults()
	v.SetDefault("root", def.Root)
	v.SetDefault("platform", def.Platform)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("log_retention_days", def.LogRetentionDays)
	v.SetDefault("interactive", def.Interactive)
	v.SetDefault("dry_run", def.DryRun)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The root may itself come from the environment, so resolve it before
	// looking for the config file that lives under it.
	configPath := filepath.Join(v.GetString("root"), ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parse configuration: %w", err)
	}
	return s, nil
}

// CachePath is where the run-scoped package probe cache lives. It sits in the
// user cache dir and is cleared at lifecycle boundaries, so nothing persists
// between runs semantically.
func CachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "dotfiles", "probe-cache.json")
}
