package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/console"
	"github.com/mikey/link-joiner/internal/adapters/smtpnotify"
	"github.com/mikey/link-joiner/internal/adapters/telegram"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/utils"
)

// NotifierFactory creates the notification sink based on configuration
type NotifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *NotifierFactory {
	return &NotifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateNotifier creates the configured notifier. api is only used by the
// telegram sink.
func (f *NotifierFactory) CreateNotifier(api telegram.API) (core.Notifier, error) {
	nc := f.cfg.GetNotify()

	switch nc.Type {
	case "telegram":
		if api == nil {
			return nil, fmt.Errorf("telegram notifier requires a bot connection")
		}
		return telegram.NewNotifier(api, nc.ChatID, nc.RatePerSecond, f.textProcessor, f.logger), nil
	case "smtp":
		n, err := smtpnotify.NewNotifier(f.cfg.GetSMTP(), f.logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "console":
		return console.NewNotifier(os.Stdout, f.logger, f.cfg.GetBool("logging.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", nc.Type)
	}
}
