package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Browser  BrowserConfig  `yaml:"browser"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Postgres PostgresConfig `yaml:"postgres"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type ServerConfig struct {
	Addr              string          `yaml:"addr"`
	ReadHeaderTimeout Duration        `yaml:"read_header_timeout"`
	APIKeys           []string        `yaml:"api_keys"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	AllowedHost       string          `yaml:"allowed_host"` // vendor domain the target URL must belong to
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BrowserConfig describes the remote browser provider endpoint.
type BrowserConfig struct {
	Endpoint       string   `yaml:"endpoint"` // ws(s):// base URL
	Token          string   `yaml:"token"`
	ProxyRegion    string   `yaml:"proxy_region"`
	SessionTTL     Duration `yaml:"session_ttl"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

type ScrapeConfig struct {
	SessionBudget         Duration `yaml:"session_budget"`
	CaptchaAttemptTimeout Duration `yaml:"captcha_attempt_timeout"`
	CaptchaMaxAttempts    int      `yaml:"captcha_max_attempts"`
	CaptureShortTimeout   Duration `yaml:"capture_short_timeout"`
	CaptureLongTimeout    Duration `yaml:"capture_long_timeout"`
	InventoryScope        string   `yaml:"inventory_scope"` // URL substring shared by the vendor inventory APIs
	BlockedMarker         string   `yaml:"blocked_marker"`  // text shown by the blocking page
	RefreshSelector       string   `yaml:"refresh_selector"`
	RefreshText           string   `yaml:"refresh_text"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Duration accepts human-readable values ("90s", "5m") or bare numbers, which
// are treated as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnv lets secrets come from the environment instead of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BROWSER_TOKEN"); v != "" {
		c.Browser.Token = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		c.Server.APIKeys = nil
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				c.Server.APIKeys = append(c.Server.APIKeys, key)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = Duration(10 * time.Second)
	}
	if c.Server.RateLimit.RPS <= 0 {
		c.Server.RateLimit.RPS = 0.5
	}
	if c.Server.RateLimit.Burst <= 0 {
		c.Server.RateLimit.Burst = 2
	}
	if c.Browser.SessionTTL <= 0 {
		c.Browser.SessionTTL = Duration(6 * time.Minute)
	}
	if c.Browser.ConnectTimeout <= 0 {
		c.Browser.ConnectTimeout = Duration(30 * time.Second)
	}
	if c.Scrape.SessionBudget <= 0 {
		c.Scrape.SessionBudget = Duration(5 * time.Minute)
	}
	if c.Scrape.CaptchaAttemptTimeout <= 0 {
		c.Scrape.CaptchaAttemptTimeout = Duration(60 * time.Second)
	}
	if c.Scrape.CaptchaMaxAttempts <= 0 {
		c.Scrape.CaptchaMaxAttempts = 3
	}
	if c.Scrape.CaptureShortTimeout <= 0 {
		c.Scrape.CaptureShortTimeout = Duration(30 * time.Second)
	}
	if c.Scrape.CaptureLongTimeout <= 0 {
		c.Scrape.CaptureLongTimeout = Duration(90 * time.Second)
	}
	if c.Scrape.InventoryScope == "" {
		c.Scrape.InventoryScope = "/api/inventory/"
	}
	if c.Scrape.BlockedMarker == "" {
		c.Scrape.BlockedMarker = "Access to this page has been denied"
	}
	if c.Scrape.RefreshSelector == "" {
		c.Scrape.RefreshSelector = `[data-testid="refresh-button"]`
	}
	if c.Scrape.RefreshText == "" {
		c.Scrape.RefreshText = "refresh"
	}
}

func (c *Config) validate() error {
	if c.Browser.Endpoint == "" {
		return fmt.Errorf("browser.endpoint is required")
	}
	return nil
}

// WebSocketURL builds the provider connection URL for one named session.
func (b *BrowserConfig) WebSocketURL(sessionName string) string {
	q := url.Values{}
	if b.Token != "" {
		q.Set("token", b.Token)
	}
	if b.ProxyRegion != "" {
		q.Set("proxy", b.ProxyRegion)
	}
	q.Set("timeout", strconv.FormatInt(b.SessionTTL.Std().Milliseconds(), 10))
	q.Set("sessionName", sessionName)
	return b.Endpoint + "?" + q.Encode()
}
