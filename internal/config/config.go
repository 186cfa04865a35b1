package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/EgorLis/bitacbot/internal/nostr"
)

// EnvSecretKey перекрывает secret_key из файла.
const EnvSecretKey = "BITACBOT_SECRET_KEY"

type Profile struct {
	Name         string `yaml:"name" json:"name"`
	About        string `yaml:"about" json:"about"`
	Picture      string `yaml:"picture" json:"picture"`
	IntroMessage string `yaml:"intro_message" json:"intro_message"`
	// Announce: опубликовать intro_message заметкой при старте.
	Announce bool `yaml:"announce" json:"announce"`
}

type Explorer struct {
	BaseURL        string   `yaml:"base_url" json:"base_url"`
	Timeout        Duration `yaml:"timeout" json:"timeout"`
	UserAgent      string   `yaml:"user_agent" json:"user_agent"`
	IncludeMempool bool     `yaml:"include_mempool" json:"include_mempool"`
}

type Metrics struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	ListenAddress string   `yaml:"listen_address" json:"listen_address"`
	ReadTimeout   Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout   Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // console|json
}

type Dedup struct {
	MaxKeys int      `yaml:"max_keys" json:"max_keys"`
	TTL     Duration `yaml:"ttl" json:"ttl"`
}

type Config struct {
	Relays    []string `yaml:"relays" json:"relays"`
	SecretKey string   `yaml:"secret_key" json:"secret_key"`
	Profile   Profile  `yaml:"profile" json:"profile"`
	Explorer  Explorer `yaml:"explorer" json:"explorer"`
	Metrics   Metrics  `yaml:"metrics" json:"metrics"`
	Log       Log      `yaml:"log" json:"log"`
	Dedup     Dedup    `yaml:"dedup" json:"dedup"`
}

// Load читает YAML (.yml/.yaml) или JSON с комментариями (.json/.jsonc),
// проставляет значения по умолчанию и проверяет результат.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv(EnvSecretKey)); v != "" {
		c.SecretKey = v
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse разбирает содержимое по расширению файла, без значений по умолчанию.
func Parse(b []byte, ext string) (*Config, error) {
	var c Config
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(b), &c); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported extension %q (want .yml, .yaml, .json, .jsonc)", ext)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Profile.Name == "" {
		c.Profile.Name = "Bitac Bot"
	}
	if c.Profile.About == "" {
		c.Profile.About = "I'm a bot that answers how much bitcoin a given address has."
	}
	if c.Profile.IntroMessage == "" {
		c.Profile.IntroMessage = "Send me a bitcoin address, and I'll tell you how much it has."
	}
	if c.Explorer.BaseURL == "" {
		c.Explorer.BaseURL = "https://mempool.space/api"
	}
	if c.Explorer.Timeout == 0 {
		c.Explorer.Timeout = Duration(10 * time.Second)
	}
	if c.Explorer.UserAgent == "" {
		c.Explorer.UserAgent = "bitacbot"
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9108"
	}
	if c.Metrics.ReadTimeout == 0 {
		c.Metrics.ReadTimeout = Duration(5 * time.Second)
	}
	if c.Metrics.WriteTimeout == 0 {
		c.Metrics.WriteTimeout = Duration(5 * time.Second)
	}
	if c.Metrics.IdleTimeout == 0 {
		c.Metrics.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Dedup.MaxKeys == 0 {
		c.Dedup.MaxKeys = 10000
	}
	if c.Dedup.TTL == 0 {
		c.Dedup.TTL = Duration(time.Hour)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Relays) == 0 {
		errs = append(errs, errors.New("relays: at least one relay is required"))
	}
	for _, r := range c.Relays {
		if err := nostr.ValidateRelayURL(r); err != nil {
			errs = append(errs, err)
		}
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, fmt.Errorf("secret_key: required (or set %s)", EnvSecretKey))
	}
	if !strings.HasPrefix(c.Explorer.BaseURL, "http://") && !strings.HasPrefix(c.Explorer.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("explorer.base_url: %q is not an http(s) url", c.Explorer.BaseURL))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: %q (want console or json)", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
