// Package config loads taskscribe configuration from
// ~/.taskscribe/config.yaml with environment variables taking precedence,
// so CI and one-off runs never need a config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds provider credentials and pipeline settings.
type Config struct {
	// Provider selects the board backend: "trello" or "notion".
	Provider string `yaml:"provider"`

	Trello struct {
		APIKey  string `yaml:"api_key"`
		Token   string `yaml:"token"`
		BoardID string `yaml:"board_id"`
	} `yaml:"trello"`

	Notion struct {
		APIKey     string `yaml:"api_key"`
		DatabaseID string `yaml:"database_id"`
	} `yaml:"notion"`

	OpenAI struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"openai"`

	// ChunkSeconds is the streaming audio chunk duration.
	ChunkSeconds int `yaml:"chunk_seconds"`
	// HistoryDB is the path of the SQLite session/history database.
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns the defaults applied under any config file.
func DefaultConfig() *Config {
	cfg := &Config{
		Provider:     "trello",
		ChunkSeconds: 5,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryDB = filepath.Join(home, ".taskscribe", "history.db")
	} else {
		cfg.HistoryDB = "taskscribe-history.db"
	}
	return cfg
}

// Load reads configuration from a YAML file, then overlays environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromHome loads configuration from ~/.taskscribe/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	return Load(filepath.Join(home, ".taskscribe", "config.yaml"))
}

func (c *Config) applyEnv() {
	setIfEnv(&c.Provider, "TASKSCRIBE_PROVIDER")
	setIfEnv(&c.Trello.APIKey, "TRELLO_API_KEY")
	setIfEnv(&c.Trello.Token, "TRELLO_TOKEN")
	setIfEnv(&c.Trello.BoardID, "TRELLO_BOARD_ID")
	setIfEnv(&c.Notion.APIKey, "NOTION_API_KEY")
	setIfEnv(&c.Notion.DatabaseID, "NOTION_DATABASE_ID")
	setIfEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEnv(&c.HistoryDB, "TASKSCRIBE_HISTORY_DB")
	if v := os.Getenv("TASKSCRIBE_CHUNK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ChunkSeconds = n
		}
	}
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks structural settings. Credential presence is checked by
// ValidateProvider, so read-only commands can run without write access.
func (c *Config) Validate() error {
	switch c.Provider {
	case "trello", "notion":
	default:
		return fmt.Errorf("unknown provider %q (want trello or notion)", c.Provider)
	}
	if c.ChunkSeconds <= 0 {
		return fmt.Errorf("chunk_seconds must be positive, got %d", c.ChunkSeconds)
	}
	return nil
}

// ValidateProvider checks the selected provider's credentials are present.
func (c *Config) ValidateProvider() error {
	switch c.Provider {
	case "trello":
		if c.Trello.APIKey == "" || c.Trello.Token == "" || c.Trello.BoardID == "" {
			return fmt.Errorf("trello requires TRELLO_API_KEY, TRELLO_TOKEN, and TRELLO_BOARD_ID")
		}
	case "notion":
		if c.Notion.APIKey == "" || c.Notion.DatabaseID == "" {
			return fmt.Errorf("notion requires NOTION_API_KEY and NOTION_DATABASE_ID")
		}
	}
	return nil
}

// ValidateOpenAI checks the extraction/transcription credential.
func (c *Config) ValidateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("extraction requires OPENAI_API_KEY")
	}
	return nil
}
