package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName is used for config, data and env naming
const AppName = "worksphere"

// Config is the complete worksphere configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// APIConfig controls how the client reaches the task API
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api
	BaseURL string `mapstructure:"base_url"`
	// UserID is sent as the caller identity header on every request
	UserID string `mapstructure:"user_id"`
	// Timeout bounds each HTTP exchange. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// UIConfig controls the terminal front end
type UIConfig struct {
	// Language for user-facing messages: "vi" or "en"
	Language string `mapstructure:"language"`
	// ProjectID is the project opened on start
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Dir receives worksphere.log. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the reference task API
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	DBPath string `mapstructure:"db_path"`
	// AutolockSchedule is a cron expression; completed tasks are locked when it fires.
	// Empty disables auto-lock.
	AutolockSchedule string `mapstructure:"autolock_schedule"`
	// Seed loads demo users, projects and tasks into an empty database
	Seed bool `mapstructure:"seed"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
		},
		UI: UIConfig{
			Language: "vi",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Server: ServerConfig{
			Addr:             ":8080",
			DBPath:           DefaultDBPath(),
			AutolockSchedule: "59 23 * * 0",
		},
	}
}

// SetDefaults registers Default() values with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.user_id", d.API.UserID)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("ui.language", d.UI.Language)
	v.SetDefault("ui.project_id", d.UI.ProjectID)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.autolock_schedule", d.Server.AutolockSchedule)
	v.SetDefault("server.seed", d.Server.Seed)
}

// NewViper returns a viper instance with defaults, env binding
// (WORKSPHERE_API_BASE_URL, ...) and the config file search path set up.
// cfgFile overrides the search path when non-empty.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) and unmarshals v into a Config.
// A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/worksphere or ~/.config/worksphere
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName)
}

// DefaultDBPath returns the database location under the XDG data directory
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return AppName + ".db"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, AppName, AppName+".db")
}
