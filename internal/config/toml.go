// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// APIKeyEnv overrides the configured market data API key.
const APIKeyEnv = "ALPHAVANTAGE_API_KEY"

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Quiz   QuizConfig   `toml:"quiz"`
	Market MarketConfig `toml:"market"`
	Log    LogConfig    `toml:"log"`
}

// QuizConfig maps quiz-related settings.
type QuizConfig struct {
	Difficulty  *string `toml:"difficulty"`
	LoadDelay   *string `toml:"load-delay"`
	ChartHeight *int    `toml:"chart-height"`
	Catalog     *string `toml:"catalog"`
}

// MarketConfig maps market data settings.
type MarketConfig struct {
	APIKey   *string `toml:"api-key"`
	BaseURL  *string `toml:"base-url"`
	Timeout  *string `toml:"timeout"`
	Offline  *bool   `toml:"offline"`
	Cache    *bool   `toml:"cache"`
	CacheTTL *string `toml:"cache-ttl"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
// A non-empty APIKeyEnv replaces market.api-key.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	var cfg FileConfig
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
		}
	} else {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Market.APIKey = &key
	}
	return cfg, nil
}
