package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/clova"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/factory"
	"github.com/mikey/link-joiner/internal/logging"
	"github.com/mikey/link-joiner/internal/password"
	"github.com/mikey/link-joiner/internal/utils"
)

// CLIFlags contains all command line flags for the probe application
type CLIFlags struct {
	// OCR flags
	Provider    string
	OCREndpoint string
	OCRSecret   string
	MaxTokens   int

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Pipeline flags
	Keyword  string
	Platform string
	Join     bool

	// Input flags
	InputFile  string
	ImageFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// OCR flags
	flag.StringVar(&flags.Provider, "ocr", "none", "OCR provider (clova, openai, gemini, bedrock, none)")
	flag.StringVar(&flags.OCREndpoint, "ocr-endpoint", "", "CLOVA OCR endpoint URL")
	flag.StringVar(&flags.OCRSecret, "ocr-secret", "", "CLOVA OCR secret")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 256, "Maximum tokens for vision model responses")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o", "OpenAI model name")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")

	// Pipeline flags
	flag.StringVar(&flags.Keyword, "keyword", "open.kakao.com", "Keyword a link must contain")
	flag.StringVar(&flags.Platform, "platform", "mac", "Click coordinate set (mac, windows, linux)")
	flag.BoolVar(&flags.Join, "join", false, "Open the matched links in a browser and run the join clicks")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Message text file (use stdin if not specified)")
	flag.StringVar(&flags.ImageFile, "image", "", "Photo attached to the message")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the probe application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", flags.ConfigFile))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(config.NewRuntime); err != nil {
		return nil, err
	}

	// OCR requests are not exported from the probe
	if err := container.Provide(func() clova.Recorder { return nil }); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewOCRFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewBrowserFactory); err != nil {
		return nil, err
	}

	// Register password extraction
	if err := container.Provide(password.NewExtractor); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.OCRFactory, passwords *password.Extractor) (*password.ImageExtractor, error) {
		recognizer, err := f.CreateRecognizer()
		if err != nil {
			return nil, err
		}
		return f.CreateImageExtractor(passwords, recognizer), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("notify.type", "console")
	v.Set("cache.type", "memory")
	v.Set("logging.verbose", flags.Verbose)
	v.Set("pipeline.keyword", flags.Keyword)
	v.Set("pipeline.max_workers", 1)
	v.Set("browser.platform", flags.Platform)

	// Set OCR provider
	v.Set("ocr.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "clova":
		v.Set("ocr.endpoint", flags.OCREndpoint)
		v.Set("ocr.secret", flags.OCRSecret)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
	}

	return config.NewFromViper(v)
}
