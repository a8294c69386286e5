package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/utils"
)

// Factory creates new instances of Recognizer
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Recognizer instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateRecognizer creates a new Recognizer
func (f *Factory) CreateRecognizer() (*Recognizer, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is not set")
	}

	client := openai.NewClient(openaiCfg.APIKey)

	return NewRecognizer(
		client,
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		f.logger,
		f.textProcessor,
	), nil
}
