package gemini

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/utils"
)

// Factory creates new instances of Recognizer
type Factory struct {
	apiKey        string
	modelName     string
	maxTokens     int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Recognizer instances
func NewFactory(
	apiKey string,
	modelName string,
	maxTokens int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Factory {
	return &Factory{
		apiKey:        apiKey,
		modelName:     modelName,
		maxTokens:     maxTokens,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateRecognizer creates a new Recognizer
func (f *Factory) CreateRecognizer() (*Recognizer, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("gemini.api_key is not set")
	}
	return NewRecognizer(
		f.apiKey,
		f.modelName,
		f.maxTokens,
		f.logger,
		f.textProcessor,
	)
}
