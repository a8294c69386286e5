package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/browser"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
)

// BrowserFactory creates the browser session pool
type BrowserFactory struct {
	cfg     *config.Config
	runtime *config.Runtime
	logger  *zap.Logger
}

// NewBrowserFactory creates a new browser factory
func NewBrowserFactory(cfg *config.Config, runtime *config.Runtime, logger *zap.Logger) *BrowserFactory {
	return &BrowserFactory{
		cfg:     cfg,
		runtime: runtime,
		logger:  logger,
	}
}

// CreatePool launches one browser per worker. In shared mode the worker
// count is one, so every task goes through the same browser.
func (f *BrowserFactory) CreatePool() (*browser.Pool, error) {
	bc := f.cfg.GetBrowser()
	size := f.cfg.WorkerCount()

	f.logger.Info("Starting browsers",
		zap.Int("sessions", size),
		zap.String("mode", bc.SessionMode),
		zap.String("platform", bc.Platform))

	return browser.NewPool(size, func(i int) (core.Automation, error) {
		return browser.NewSession(i, bc, f.runtime, f.logger)
	}, f.logger)
}
