package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Remote     RemoteConfig  `mapstructure:"remote"`
	Watcher    WatcherConfig `mapstructure:"watcher"`
	IgnoreList []string      `mapstructure:"ignore_list"`
	DBPath     string        `mapstructure:"db_path"`
	DaemonPort int           `mapstructure:"daemon_port"`
}

type RemoteConfig struct {
	Backend string `mapstructure:"backend"`
	// Folder is the remote folder the synced root is mirrored into.
	Folder string `mapstructure:"folder"`
	// LocalDir is the target directory of the "local" backend.
	LocalDir string `mapstructure:"local_dir"`
}

type WatcherConfig struct {
	Backend     string        `mapstructure:"backend"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

var Default = Config{
	Remote: RemoteConfig{
		Backend: "gdrive",
	},
	Watcher: WatcherConfig{
		Backend:     "fsnotify",
		PollTimeout: time.Second,
	},
	IgnoreList: []string{".git", ".DS_Store", "*.tmp", "*.swp", "*.drivesync.tmp"},
	DBPath:     "drivesync.db",
	DaemonPort: 9011,
}

// Dir returns ~/.drivesync.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, ".drivesync"), nil
}

func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	return LoadFrom(dir)
}

// LoadFrom reads config.yaml from dir, overlaid with DRIVESYNC_ environment
// variables. A missing file yields the defaults. A relative db_path is
// resolved against dir.
func LoadFrom(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("remote.backend", Default.Remote.Backend)
	v.SetDefault("remote.folder", Default.Remote.Folder)
	v.SetDefault("remote.local_dir", Default.Remote.LocalDir)
	v.SetDefault("watcher.backend", Default.Watcher.Backend)
	v.SetDefault("watcher.poll_timeout", Default.Watcher.PollTimeout)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("daemon_port", Default.DaemonPort)

	v.SetEnvPrefix("DRIVESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(dir, cfg.DBPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case "gdrive", "dropbox":
	case "local":
		if c.Remote.LocalDir == "" {
			return errors.New("remote.local_dir is required for the local backend")
		}
	default:
		return fmt.Errorf("unsupported remote backend: %s", c.Remote.Backend)
	}

	if c.Watcher.PollTimeout <= 0 {
		return fmt.Errorf("watcher.poll_timeout must be positive, got %s", c.Watcher.PollTimeout)
	}

	if c.DaemonPort < 0 || c.DaemonPort > 65535 {
		return fmt.Errorf("invalid daemon_port: %d", c.DaemonPort)
	}

	return nil
}
