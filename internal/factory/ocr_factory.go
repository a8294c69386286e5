package factory

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/bedrock"
	"github.com/mikey/link-joiner/internal/adapters/clova"
	"github.com/mikey/link-joiner/internal/adapters/gemini"
	"github.com/mikey/link-joiner/internal/adapters/openai"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/password"
	"github.com/mikey/link-joiner/internal/utils"
)

// OCRFactory creates the text recognizer used for photo passwords
type OCRFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	recorder      clova.Recorder
	closers       []io.Closer
}

// NewOCRFactory creates a new OCR factory. recorder may be nil.
func NewOCRFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, recorder clova.Recorder) *OCRFactory {
	return &OCRFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		recorder:      recorder,
	}
}

// CreateRecognizer returns the configured recognizer, or nil when OCR is
// disabled. An unconfigured CLOVA endpoint only disables OCR.
func (f *OCRFactory) CreateRecognizer() (core.TextRecognizer, error) {
	provider := f.cfg.GetString("ocr.provider")

	switch provider {
	case "", "none":
		f.logger.Info("OCR disabled")
		return nil, nil
	case "clova":
		client, err := clova.NewClient(f.cfg.GetOCR(), f.recorder, f.logger)
		if errors.Is(err, clova.ErrNotConfigured) {
			f.logger.Warn("OCR endpoint or secret missing, image passwords disabled")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		r, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateRecognizer()
		if err != nil {
			return nil, err
		}
		return r, nil
	case "gemini":
		g := f.cfg.GetGemini()
		r, err := gemini.NewFactory(g.APIKey, g.ModelName, g.MaxTokens, f.logger, f.textProcessor).CreateRecognizer()
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, r)
		return r, nil
	case "bedrock":
		r, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateRecognizer()
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", provider)
	}
}

// CreateImageExtractor wraps recognizer with image preparation. It returns
// nil when there is no recognizer.
func (f *OCRFactory) CreateImageExtractor(passwords core.PasswordExtractor, recognizer core.TextRecognizer) *password.ImageExtractor {
	if recognizer == nil {
		return nil
	}
	ocr := f.cfg.GetOCR()
	return password.NewImageExtractor(passwords, recognizer, password.ImageOptions{
		MaxDimension: ocr.MaxImageDimension,
		Debug:        ocr.Debug,
		DebugDir:     ocr.DebugDir,
	}, f.logger)
}

// Close releases provider clients that hold connections
func (f *OCRFactory) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c.Close())
	}
	f.closers = nil
	return errors.Join(errs...)
}
