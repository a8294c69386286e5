package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/link-joiner/")
	v.AddConfigPath("$HOME/.link-joiner")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("LINK_JOINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("LINK_JOINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.health_interval", "5m")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.download_retries", 3)

	v.SetDefault("source.type", "telegram")

	// Notification defaults
	v.SetDefault("notify.type", "telegram")
	v.SetDefault("notify.chat_id", 0)
	v.SetDefault("notify.rate_per_second", 1)

	v.SetDefault("smtp.address", "")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", []string{})
	v.SetDefault("smtp.subject", "Keyword link detected")

	// Pipeline defaults
	v.SetDefault("pipeline.keyword", "open.kakao.com")
	v.SetDefault("pipeline.exclude_keywords", []string{})
	v.SetDefault("pipeline.excluded_chat_ids", []int64{})
	v.SetDefault("pipeline.target_chat_id", 0)
	v.SetDefault("pipeline.allow_channels", false)
	v.SetDefault("pipeline.max_workers", 3)
	v.SetDefault("pipeline.url_timeout", "30s")
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.retry_delay", "1s")
	v.SetDefault("pipeline.image_dir", "image")

	// Cache defaults
	v.SetDefault("cache.type", "json")
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.save_interval", 50)
	v.SetDefault("cache.path", "message_cache.json")
	v.SetDefault("cache.links.enabled", true)
	v.SetDefault("cache.links.path", "link_cache.json")
	v.SetDefault("cache.sqlite_path", "data/cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/link_joiner")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "link-joiner")

	// OCR defaults
	v.SetDefault("ocr.provider", "clova")
	v.SetDefault("ocr.endpoint", "")
	v.SetDefault("ocr.secret", "")
	v.SetDefault("ocr.max_image_dimension", 1600)
	v.SetDefault("ocr.max_retries", 3)
	v.SetDefault("ocr.connect_timeout", "5s")
	v.SetDefault("ocr.read_timeout", "30s")
	v.SetDefault("ocr.requests_per_second", 2)
	v.SetDefault("ocr.insecure_skip_verify", false)
	v.SetDefault("ocr.debug", false)
	v.SetDefault("ocr.debug_dir", "image/debug")
	v.SetDefault("ocr.debug_max_age", "168h")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 256)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 256)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o")
	v.SetDefault("openai.max_tokens", 256)

	// Browser defaults
	v.SetDefault("browser.platform", "mac")
	v.SetDefault("browser.session_mode", "per_worker")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.page_load_wait", "2.5s")
	v.SetDefault("browser.click_interval", "200ms")
	v.SetDefault("browser.navigation_timeout", "15s")
	v.SetDefault("browser.click_timeout", "10s")
	v.SetDefault("browser.password_step", 0)
	v.SetDefault("browser.primary_selector", "button")
	v.SetDefault("browser.coordinates.mac.default", "881,633;1270,489")
	v.SetDefault("browser.coordinates.mac.password", "881,633;1000,500;1270,489")
	v.SetDefault("browser.coordinates.windows.default", "1994,606;2118,360;2004,510")
	v.SetDefault("browser.coordinates.windows.password", "1994,606;2118,360;2004,510")
	v.SetDefault("browser.coordinates.linux.default", "881,633;1270,489")
	v.SetDefault("browser.coordinates.linux.password", "881,633;1000,500;1270,489")

	v.SetDefault("preview.enabled", false)
	v.SetDefault("preview.timeout", "10s")

	v.SetDefault("metrics.listen_address", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.verbose", false)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetInt64Slice gets a list of int64 values, skipping entries that do not parse
func (c *Config) GetInt64Slice(key string) []int64 {
	raw := c.v.Get(key)
	if raw == nil {
		return nil
	}
	var items []interface{}
	switch typed := raw.(type) {
	case []interface{}:
		items = typed
	case []int64:
		return append([]int64(nil), typed...)
	case string:
		for _, field := range strings.FieldsFunc(typed, func(r rune) bool { return r == ',' || r == ' ' }) {
			items = append(items, field)
		}
	default:
		for _, s := range cast.ToStringSlice(raw) {
			items = append(items, s)
		}
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := cast.ToInt64E(item)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}

// duration reads a duration and falls back to def when the value is malformed
func (c *Config) duration(key string, def time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return def
	}
	return d
}
