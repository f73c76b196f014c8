package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Telegram TelegramConfig
	Import   ImportConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// TelegramConfig holds notification channel settings. An empty BotToken
// disables outbound notifications entirely.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	TokenEnv string `mapstructure:"token_env"`
}

// ImportConfig holds statement extractor knobs. FallbackDataRow is the
// positional default used when the header row cannot be located; it is a
// per-bank heuristic, not a constant, so it lives in configuration.
type ImportConfig struct {
	HeaderScanRows  int `mapstructure:"header_scan_rows"`
	FallbackDataRow int `mapstructure:"fallback_data_row"`
}

// Load reads configuration from file and env. Env var overrides use prefix MYATA_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "myata-backoffice", "backoffice.db"))
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.token_env", "TELEGRAM_BOT_TOKEN")
	v.SetDefault("import.header_scan_rows", 20)
	v.SetDefault("import.fallback_data_row", 11)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MYATA_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "myata-backoffice"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MYATA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Telegram.BotToken == "" && c.Telegram.TokenEnv != "" {
		c.Telegram.BotToken = os.Getenv(c.Telegram.TokenEnv)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The bot token ends up in plain text in the config file; prefer the env var.
func Save(cfg Config) error {
	path := os.Getenv("MYATA_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "myata-backoffice", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("telegram.bot_token", cfg.Telegram.BotToken)
	v.Set("telegram.chat_id", cfg.Telegram.ChatID)
	v.Set("telegram.token_env", cfg.Telegram.TokenEnv)
	v.Set("import.header_scan_rows", cfg.Import.HeaderScanRows)
	v.Set("import.fallback_data_row", cfg.Import.FallbackDataRow)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
