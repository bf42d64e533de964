// Package config loads the application configuration from a YAML file and
// FINBOX_* environment variables via Viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// OpenAIConfig holds the LLM pass-through settings.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" yaml:"model"`
}

// MailboxConfig holds the IMAP sweep defaults.
type MailboxConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SourceFolder string `mapstructure:"source_folder" yaml:"source_folder"`
	TargetFolder string `mapstructure:"target_folder" yaml:"target_folder"`
	SavePath     string `mapstructure:"save_path" yaml:"save_path"`
}

// GraphConfig holds the Teams channel sweep defaults.
type GraphConfig struct {
	TenantID      string `mapstructure:"tenant_id" yaml:"tenant_id"`
	ClientID      string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret  string `mapstructure:"client_secret" yaml:"client_secret"`
	Team          string `mapstructure:"team" yaml:"team"`
	Channel       string `mapstructure:"channel" yaml:"channel"`
	SavePath      string `mapstructure:"save_path" yaml:"save_path"`
	UseDeviceCode bool   `mapstructure:"use_device_code" yaml:"use_device_code"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig  `mapstructure:"server" yaml:"server"`
	DBPath    string        `mapstructure:"db_path" yaml:"db_path"`
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	NATSURL   string        `mapstructure:"nats_url" yaml:"nats_url"`
	OpenAI    OpenAIConfig  `mapstructure:"openai" yaml:"openai"`
	Mailbox   MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	Graph     GraphConfig   `mapstructure:"graph" yaml:"graph"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		DBPath: "data/finbox.db",
		OpenAI: OpenAIConfig{Model: "gpt-4o"},
		Mailbox: MailboxConfig{
			Host: "imap.gmail.com",
			Port: 993,
		},
	}
}

// Load reads configuration from path. A missing file is not an error: the
// defaults plus environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FINBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("db_path", "data/finbox.db")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("mailbox.host", "imap.gmail.com")
	v.SetDefault("mailbox.port", 993)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
