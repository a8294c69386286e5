package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Point is a screen coordinate used by the join click sequence
type Point struct {
	X float64
	Y float64
}

// TelegramConfig represents the Telegram bot configuration
type TelegramConfig struct {
	BotToken       string
	AdminChatID    int64
	HealthInterval time.Duration
	PollTimeout    int
	Debug          bool
}

// NotifyConfig represents the notification sink configuration
type NotifyConfig struct {
	Type          string
	ChatID        int64
	RatePerSecond float64
}

// SMTPConfig represents the e-mail notification sink configuration
type SMTPConfig struct {
	Address  string
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// PipelineConfig represents the message pipeline configuration
type PipelineConfig struct {
	Keyword         string
	ExcludeKeywords []string
	ExcludedChatIDs []int64
	TargetChatID    int64
	AllowChannels   bool
	MaxWorkers      int
	URLTimeout      time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	ImageDir        string
}

// CacheConfig represents the dedup cache configuration
type CacheConfig struct {
	Type          string
	MaxSize       int
	SaveInterval  int
	Path          string
	LinksEnabled  bool
	LinksPath     string
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// OCRConfig represents the image text recognition configuration
type OCRConfig struct {
	Provider           string
	Endpoint           string
	Secret             string
	MaxImageDimension  int
	MaxRetries         int
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	RequestsPerSecond  float64
	InsecureSkipVerify bool
	Debug              bool
	DebugDir           string
	DebugMaxAge        time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region    string
	ModelID   string
	MaxTokens int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
	MaxTokens int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey    string
	ModelName string
	MaxTokens int
}

// BrowserConfig represents the browser automation configuration
type BrowserConfig struct {
	Platform            string
	SessionMode         string
	Headless            bool
	Bin                 string
	PageLoadWait        time.Duration
	ClickInterval       time.Duration
	NavigationTimeout   time.Duration
	ClickTimeout        time.Duration
	PasswordStep        int
	PrimarySelector     string
	Coordinates         []Point
	PasswordCoordinates []Point
}

// PreviewConfig represents the link preview resolver configuration
type PreviewConfig struct {
	Enabled bool
	Timeout time.Duration
}

// GetTelegram returns the Telegram configuration
func (c *Config) GetTelegram() TelegramConfig {
	return TelegramConfig{
		BotToken:       c.GetString("telegram.bot_token"),
		AdminChatID:    c.GetInt64("telegram.admin_chat_id"),
		HealthInterval: c.duration("telegram.health_interval", 5*time.Minute),
		PollTimeout:    c.GetInt("telegram.poll_timeout"),
		Debug:          c.GetBool("telegram.debug"),
	}
}

// GetNotify returns the notification configuration. A zero chat id falls
// back to the pipeline target chat.
func (c *Config) GetNotify() NotifyConfig {
	chatID := c.GetInt64("notify.chat_id")
	if chatID == 0 {
		chatID = c.GetInt64("pipeline.target_chat_id")
	}
	return NotifyConfig{
		Type:          c.GetString("notify.type"),
		ChatID:        chatID,
		RatePerSecond: c.GetFloat64("notify.rate_per_second"),
	}
}

// GetSMTP returns the SMTP configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Address:  c.GetString("smtp.address"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		From:     c.GetString("smtp.from"),
		To:       c.GetStringSlice("smtp.to"),
		Subject:  c.GetString("smtp.subject"),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		Keyword:         c.GetString("pipeline.keyword"),
		ExcludeKeywords: c.GetStringSlice("pipeline.exclude_keywords"),
		ExcludedChatIDs: c.GetInt64Slice("pipeline.excluded_chat_ids"),
		TargetChatID:    c.GetInt64("pipeline.target_chat_id"),
		AllowChannels:   c.GetBool("pipeline.allow_channels"),
		MaxWorkers:      c.GetInt("pipeline.max_workers"),
		URLTimeout:      c.duration("pipeline.url_timeout", 30*time.Second),
		MaxRetries:      c.GetInt("pipeline.max_retries"),
		RetryDelay:      c.duration("pipeline.retry_delay", time.Second),
		ImageDir:        c.GetString("pipeline.image_dir"),
	}
}

// WorkerCount is the number of concurrent URL tasks: available CPUs clamped
// to the configured maximum, and exactly one when the browser is shared.
func (c *Config) WorkerCount() int {
	if c.GetBrowser().SessionMode == "shared" {
		return 1
	}
	n := runtime.NumCPU()
	if max := c.GetInt("pipeline.max_workers"); max > 0 && max < n {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:          c.GetString("cache.type"),
		MaxSize:       c.GetInt("cache.max_size"),
		SaveInterval:  c.GetInt("cache.save_interval"),
		Path:          c.GetString("cache.path"),
		LinksEnabled:  c.GetBool("cache.links.enabled"),
		LinksPath:     c.GetString("cache.links.path"),
		SQLitePath:    c.GetString("cache.sqlite_path"),
		MySQLDSN:      c.GetString("cache.mysql_dsn"),
		RedisAddr:     c.GetString("cache.redis_addr"),
		RedisPassword: c.GetString("cache.redis_password"),
		RedisDB:       c.GetInt("cache.redis_db"),
		RedisPrefix:   c.GetString("cache.redis_prefix"),
	}
}

// GetOCR returns the OCR configuration
func (c *Config) GetOCR() OCRConfig {
	return OCRConfig{
		Provider:           c.GetString("ocr.provider"),
		Endpoint:           c.GetString("ocr.endpoint"),
		Secret:             c.GetString("ocr.secret"),
		MaxImageDimension:  c.GetInt("ocr.max_image_dimension"),
		MaxRetries:         c.GetInt("ocr.max_retries"),
		ConnectTimeout:     c.duration("ocr.connect_timeout", 5*time.Second),
		ReadTimeout:        c.duration("ocr.read_timeout", 30*time.Second),
		RequestsPerSecond:  c.GetFloat64("ocr.requests_per_second"),
		InsecureSkipVerify: c.GetBool("ocr.insecure_skip_verify"),
		Debug:              c.GetBool("ocr.debug"),
		DebugDir:           c.GetString("ocr.debug_dir"),
		DebugMaxAge:        c.duration("ocr.debug_max_age", 7*24*time.Hour),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:    c.GetString("bedrock.region"),
		ModelID:   c.GetString("bedrock.model_id"),
		MaxTokens: c.GetInt("bedrock.max_tokens"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		ModelName: c.GetString("gemini.model_name"),
		MaxTokens: c.GetInt("gemini.max_tokens"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:    c.GetString("openai.api_key"),
		ModelName: c.GetString("openai.model_name"),
		MaxTokens: c.GetInt("openai.max_tokens"),
	}
}

// GetBrowser returns the browser configuration. Coordinate sets are picked by
// platform; malformed sets come back empty and are reported by Validate.
func (c *Config) GetBrowser() BrowserConfig {
	platform := strings.ToLower(c.GetString("browser.platform"))
	coords, _ := ParseCoordinates(c.GetString("browser.coordinates." + platform + ".default"))
	pwCoords, _ := ParseCoordinates(c.GetString("browser.coordinates." + platform + ".password"))
	if len(pwCoords) == 0 {
		pwCoords = coords
	}

	return BrowserConfig{
		Platform:            platform,
		SessionMode:         c.GetString("browser.session_mode"),
		Headless:            c.GetBool("browser.headless"),
		Bin:                 c.browserBin(platform),
		PageLoadWait:        c.duration("browser.page_load_wait", 2500*time.Millisecond),
		ClickInterval:       c.duration("browser.click_interval", 200*time.Millisecond),
		NavigationTimeout:   c.duration("browser.navigation_timeout", 15*time.Second),
		ClickTimeout:        c.duration("browser.click_timeout", 10*time.Second),
		PasswordStep:        c.GetInt("browser.password_step"),
		PrimarySelector:     c.GetString("browser.primary_selector"),
		Coordinates:         coords,
		PasswordCoordinates: pwCoords,
	}
}

func (c *Config) browserBin(platform string) string {
	if bin := c.GetString("browser.bin"); bin != "" {
		return bin
	}
	switch platform {
	case "mac":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	case "windows":
		return `C:\Program Files\Google\Chrome\Application\chrome.exe`
	default:
		return ""
	}
}

// GetPreview returns the link preview configuration
func (c *Config) GetPreview() PreviewConfig {
	return PreviewConfig{
		Enabled: c.GetBool("preview.enabled"),
		Timeout: c.duration("preview.timeout", 10*time.Second),
	}
}

// ParseCoordinates parses a "x,y;x,y" coordinate list
func ParseCoordinates(s string) ([]Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var points []Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid coordinate %q: expected x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in %q: %w", pair, err)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}
