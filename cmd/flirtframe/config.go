package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/flirtframe/opener"
	"github.com/theimaginaryfoundation/flirtframe/opener/provider"
	"github.com/theimaginaryfoundation/flirtframe/opener/store"
)

type Config struct {
	Provider    string `yaml:"provider" toml:"provider"`
	Model       string `yaml:"model" toml:"model"`
	VisionModel string `yaml:"vision_model" toml:"vision_model"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	BaseURL     string `yaml:"base_url" toml:"base_url"`

	// Per-provider keys, normally from the environment. APIKey wins for the
	// selected provider.
	OpenAIKey    string `yaml:"openai_api_key" toml:"openai_api_key"`
	AnthropicKey string `yaml:"anthropic_api_key" toml:"anthropic_api_key"`
	GeminiKey    string `yaml:"gemini_api_key" toml:"gemini_api_key"`

	Session    string `yaml:"session" toml:"session"`
	Store      string `yaml:"store" toml:"store"`
	DBPath     string `yaml:"db" toml:"db"`
	RedisAddr  string `yaml:"redis_addr" toml:"redis_addr"`
	SessionTTL string `yaml:"session_ttl" toml:"session_ttl"`

	HistoryLimit int    `yaml:"history_limit" toml:"history_limit"`
	Count        int    `yaml:"count" toml:"count"`
	Concurrency  int    `yaml:"concurrency" toml:"concurrency"`
	Style        string `yaml:"style" toml:"style"`
	ProfilesDir  string `yaml:"profiles_dir" toml:"profiles_dir"`
	Autosave     string `yaml:"autosave" toml:"autosave"`

	Pretty  bool `yaml:"pretty" toml:"pretty"`
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Provider:     string(provider.OpenAI),
		VisionModel:  "gpt-4o-mini",
		Session:      "default",
		Store:        string(store.StoreTypeSQLite),
		DBPath:       filepath.FromSlash(".flirtframe/sessions.db"),
		RedisAddr:    "localhost:6379",
		SessionTTL:   "720h",
		HistoryLimit: opener.DefaultHistoryLimit,
		Count:        opener.DefaultOpenerCount,
		Concurrency:  4,
		Pretty:       true,
	}
}

func (c Config) Validate() error {
	if _, err := provider.ParseName(c.Provider); err != nil {
		return err
	}
	st, err := store.ParseStoreType(c.Store)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.Session) == "" {
		return errors.New("missing --session")
	}
	if st == store.StoreTypeSQLite && c.DBPath == "" {
		return errors.New("missing --db for sqlite store")
	}
	if st == store.StoreTypeRedis && c.RedisAddr == "" {
		return errors.New("missing --redis-addr for redis store")
	}
	if _, err := c.sessionTTL(); err != nil {
		return err
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history-limit must be > 0")
	}
	if c.Count <= 0 {
		return errors.New("count must be > 0")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	if _, err := opener.ParseStyle(c.Style); err != nil {
		return err
	}
	return nil
}

func (c Config) sessionTTL() (time.Duration, error) {
	if c.SessionTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session-ttl %q: %w", c.SessionTTL, err)
	}
	if d < 0 {
		return 0, errors.New("session-ttl must be >= 0")
	}
	return d, nil
}

// providerConfig resolves the key for name, preferring the explicit APIKey
// when name is the selected provider.
func (c Config) providerConfig(name provider.Name, model string) provider.Config {
	key := ""
	switch name {
	case provider.Anthropic:
		key = c.AnthropicKey
	case provider.Gemini:
		key = c.GeminiKey
	default:
		key = c.OpenAIKey
	}
	if selected, _ := provider.ParseName(c.Provider); selected == name && c.APIKey != "" {
		key = c.APIKey
	}
	return provider.Config{Name: name, APIKey: key, Model: model, BaseURL: c.BaseURL}
}

// loadConfigFile overlays the file at path onto cfg. The format follows the
// extension: .yaml/.yml or .toml.
func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(b), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Unset or empty values
// leave cfg untouched.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")
	set(&cfg.GeminiKey, "GEMINI_API_KEY")

	set(&cfg.Provider, "FLIRTFRAME_PROVIDER")
	set(&cfg.Model, "FLIRTFRAME_MODEL")
	set(&cfg.VisionModel, "FLIRTFRAME_VISION_MODEL")
	set(&cfg.APIKey, "FLIRTFRAME_API_KEY")
	set(&cfg.BaseURL, "FLIRTFRAME_BASE_URL")
	set(&cfg.Session, "FLIRTFRAME_SESSION")
	set(&cfg.Store, "FLIRTFRAME_STORE")
	set(&cfg.DBPath, "FLIRTFRAME_DB")
	set(&cfg.RedisAddr, "FLIRTFRAME_REDIS_ADDR")
	set(&cfg.SessionTTL, "FLIRTFRAME_SESSION_TTL")
	set(&cfg.ProfilesDir, "FLIRTFRAME_PROFILES_DIR")
}
