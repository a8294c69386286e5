package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the settings that must hold before the process starts.
// All problems are reported together.
func Validate(cfg *Config) error {
	var errs []string

	tg := cfg.GetTelegram()
	notify := cfg.GetNotify()
	p := cfg.GetPipeline()
	cache := cfg.GetCache()

	switch cfg.GetString("source.type") {
	case "telegram":
		if strings.TrimSpace(tg.BotToken) == "" {
			errs = append(errs, "telegram.bot_token is required for the telegram source")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.type %q is not supported", cfg.GetString("source.type")))
	}

	switch notify.Type {
	case "telegram":
		if strings.TrimSpace(tg.BotToken) == "" {
			errs = append(errs, "telegram.bot_token is required for the telegram notifier")
		}
		if notify.ChatID == 0 {
			errs = append(errs, "notify.chat_id (or pipeline.target_chat_id) is required for the telegram notifier")
		}
	case "smtp":
		smtp := cfg.GetSMTP()
		if smtp.Address == "" || smtp.From == "" || len(smtp.To) == 0 {
			errs = append(errs, "smtp.address, smtp.from and smtp.to are required for the smtp notifier")
		}
	case "console":
	default:
		errs = append(errs, fmt.Sprintf("notify.type %q is not supported", notify.Type))
	}

	if strings.TrimSpace(p.Keyword) == "" {
		errs = append(errs, "pipeline.keyword must not be empty")
	}
	if p.MaxWorkers < 1 {
		errs = append(errs, "pipeline.max_workers must be >= 1")
	}
	if p.MaxRetries < 1 {
		errs = append(errs, "pipeline.max_retries must be >= 1")
	}
	if _, err := cfg.GetDuration("pipeline.url_timeout"); err != nil {
		errs = append(errs, "pipeline.url_timeout must be a duration")
	}
	if _, err := cfg.GetDuration("pipeline.retry_delay"); err != nil {
		errs = append(errs, "pipeline.retry_delay must be a duration")
	}

	if cache.MaxSize < 1 {
		errs = append(errs, "cache.max_size must be >= 1")
	}

	platform := strings.ToLower(cfg.GetString("browser.platform"))
	switch platform {
	case "mac", "windows", "linux":
	default:
		errs = append(errs, fmt.Sprintf("browser.platform %q must be mac, windows or linux", platform))
	}
	for _, variant := range []string{"default", "password"} {
		key := "browser.coordinates." + platform + "." + variant
		if _, err := ParseCoordinates(cfg.GetString(key)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	switch cfg.GetString("browser.session_mode") {
	case "per_worker", "shared":
	default:
		errs = append(errs, "browser.session_mode must be per_worker or shared")
	}

	switch cfg.GetString("ocr.provider") {
	case "clova", "openai", "gemini", "bedrock", "none", "":
	default:
		errs = append(errs, fmt.Sprintf("ocr.provider %q is not supported", cfg.GetString("ocr.provider")))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
