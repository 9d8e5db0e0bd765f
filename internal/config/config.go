// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration. It is constructed once at
// startup and passed by reference into the executor, facade and router; no
// component reads ambient environment state directly.
type Config struct {
	SSH          SSHConfig          `mapstructure:"ssh"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Docker       DockerConfig       `mapstructure:"docker"`
	Executor     ExecutorConfig     `mapstructure:"executor"`
	Notification NotificationConfig `mapstructure:"notification"`

	// ConfigFilePath stores the path to the loaded config file (not marshaled from YAML)
	ConfigFilePath string `mapstructure:"-"`
}

// SSHConfig contains the remote host connection parameters.
type SSHConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	KeyFile  string `mapstructure:"key_file"`
}

// TelegramConfig contains the chat transport settings.
type TelegramConfig struct {
	BotToken     string   `mapstructure:"bot_token"`
	AllowedUsers []string `mapstructure:"allowed_users"` // empty list = open access
}

// DockerConfig contains settings for the Docker facade.
type DockerConfig struct {
	LogTailLines int `mapstructure:"log_tail_lines"`
	LogTailChars int `mapstructure:"log_tail_chars"`
}

// ExecutorConfig selects and bounds the command transport.
type ExecutorConfig struct {
	Mode           string `mapstructure:"mode"` // "ssh" or "local"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NotificationConfig contains operator alert settings.
type NotificationConfig struct {
	ShoutrrURL string `mapstructure:"shoutrrr_url"` // Shoutrrr URL format
	Enabled    bool   `mapstructure:"enabled"`
}

// Timeout returns the executor bound as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Executor.TimeoutSeconds) * time.Second
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/shipmate")
		v.AddConfigPath("/etc/shipmate")
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			configFile := v.ConfigFileUsed()
			if configFile == "" {
				configFile = configPath
			}
			return nil, fmt.Errorf("error reading config file from %s: %w", configFile, err)
		}
		// Config file not found; using defaults and env vars
	}

	// Environment variable support
	v.SetEnvPrefix("SHIPMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		configFile := v.ConfigFileUsed()
		if configFile == "" {
			configFile = "(using defaults and environment variables)"
		}
		return nil, fmt.Errorf("error unmarshaling config from %s: %w", configFile, err)
	}

	cfg.ConfigFilePath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		configFile := v.ConfigFileUsed()
		if configFile == "" {
			configFile = "(using defaults and environment variables)"
		}
		return nil, fmt.Errorf("config validation failed for %s: %w", configFile, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// SSH defaults
	v.SetDefault("ssh.host", "") // Required for AutomaticEnv to work
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.user", "")
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.key_file", "")

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.allowed_users", []string{})

	// Docker defaults
	v.SetDefault("docker.log_tail_lines", 50)
	v.SetDefault("docker.log_tail_chars", 3500)

	// Executor defaults
	v.SetDefault("executor.mode", "ssh")
	v.SetDefault("executor.timeout_seconds", 30)

	// Notification defaults
	v.SetDefault("notification.shoutrrr_url", "")
	v.SetDefault("notification.enabled", false)
}

// Validate ensures all required fields are set and values are within valid ranges.
func (c *Config) Validate() error {
	configSource := c.ConfigFilePath
	if configSource == "" {
		configSource = "(defaults/environment)"
	}

	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required in config %s (set SHIPMATE_TELEGRAM_BOT_TOKEN environment variable)", configSource)
	}

	switch c.Executor.Mode {
	case "local":
		// No connection parameters needed.
	case "ssh":
		if c.SSH.Host == "" {
			return fmt.Errorf("ssh.host is required for executor.mode=ssh in config %s", configSource)
		}
		if c.SSH.User == "" {
			return fmt.Errorf("ssh.user is required for executor.mode=ssh in config %s", configSource)
		}
		if c.SSH.Password == "" && c.SSH.KeyFile == "" {
			return fmt.Errorf("one of ssh.password or ssh.key_file is required for executor.mode=ssh in config %s (set SHIPMATE_SSH_PASSWORD environment variable)", configSource)
		}
	default:
		return fmt.Errorf("executor.mode must be \"ssh\" or \"local\", got %q in config %s", c.Executor.Mode, configSource)
	}

	return c.validateRanges(configSource)
}

func (c *Config) validateRanges(configSource string) error {
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port must be between 1 and 65535, got %d in config %s", c.SSH.Port, configSource)
	}
	if c.Executor.TimeoutSeconds < 1 || c.Executor.TimeoutSeconds > 600 {
		return fmt.Errorf("executor.timeout_seconds must be between 1 and 600, got %d in config %s", c.Executor.TimeoutSeconds, configSource)
	}
	if c.Docker.LogTailLines < 1 || c.Docker.LogTailLines > 5000 {
		return fmt.Errorf("docker.log_tail_lines must be between 1 and 5000, got %d in config %s", c.Docker.LogTailLines, configSource)
	}
	// Telegram rejects messages above 4096 characters; keep headroom for the
	// screen header and truncation marker.
	if c.Docker.LogTailChars < 100 || c.Docker.LogTailChars > 4000 {
		return fmt.Errorf("docker.log_tail_chars must be between 100 and 4000, got %d in config %s", c.Docker.LogTailChars, configSource)
	}
	return nil
}
