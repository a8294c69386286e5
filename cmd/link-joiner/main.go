package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/browser"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/di"
	"github.com/mikey/link-joiner/internal/factory"
	"github.com/mikey/link-joiner/internal/metrics"
	"github.com/mikey/link-joiner/internal/password"
	"github.com/mikey/link-joiner/internal/ports"
	"github.com/mikey/link-joiner/internal/secrets"
)

// drainTimeout bounds how long shutdown waits for running URL tasks
const drainTimeout = 30 * time.Second

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(prepare); err != nil {
		fmt.Printf("Startup failed: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// prepare fills secrets from the keyring and rejects unusable configuration
// before any connection is made
func prepare(cfg *config.Config, logger *zap.Logger) error {
	secrets.Resolve(cfg, logger)
	return config.Validate(cfg)
}

type runParams struct {
	dig.In

	Logger       *zap.Logger
	Config       *config.Config
	Runtime      *config.Runtime
	Source       ports.MessageSource
	Pipeline     *core.MessagePipeline
	Caches       *di.Caches
	Pool         *browser.Pool
	CacheFactory *factory.CacheFactory
	OCRFactory   *factory.OCRFactory
	Images       *password.ImageExtractor
	Shutdown     *di.Shutdown
}

// run is the main application function that gets all dependencies injected
func run(p runParams) error {
	logger := p.Logger
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.Shutdown.Done():
			logger.Info("Shutdown requested by bot command")
			cancel()
		case <-ctx.Done():
		}
	}()

	if addr := p.Config.GetString("metrics.listen_address"); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, logger); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	if err := os.MkdirAll(p.Runtime.ImageDir(), 0755); err != nil {
		logger.Warn("Failed to create image directory", zap.String("dir", p.Runtime.ImageDir()), zap.Error(err))
	}

	// URL tasks outlive the source loop so they can drain on shutdown
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	errc := make(chan error, 1)
	go func() {
		errc <- p.Source.Start(ctx, func(_ context.Context, msg *core.InboundMessage) {
			p.Pipeline.Submit(workCtx, msg)
		})
	}()
	logger.Info("Link joiner started",
		zap.String("keyword", p.Runtime.Keyword()),
		zap.Int("browser_sessions", p.Pool.Size()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		if runErr != nil {
			logger.Error("Message source stopped", zap.Error(runErr))
		}
	}
	logger.Info("Shutting down...")
	cancel()

	// Stop the source
	if err := p.Source.Stop(); err != nil {
		logger.Error("Failed to stop message source", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		p.Pipeline.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		logger.Warn("Running tasks did not finish in time, cancelling")
		cancelWork()
		<-drained
	}

	cleanup(p)
	logger.Info("Shutdown complete")
	return runErr
}

// cleanup flushes the caches and releases browsers and stores
func cleanup(p runParams) {
	logger := p.Logger

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Caches.Flush(flushCtx); err != nil {
		logger.Error("Failed to flush caches", zap.Error(err))
	}

	if err := p.Pool.Close(); err != nil {
		logger.Error("Failed to close browser sessions", zap.Error(err))
	}
	if err := p.CacheFactory.Close(); err != nil {
		logger.Error("Failed to close cache stores", zap.Error(err))
	}
	if err := p.OCRFactory.Close(); err != nil {
		logger.Error("Failed to close OCR client", zap.Error(err))
	}

	if p.Images != nil && p.Config.GetOCR().Debug {
		p.Images.CleanupDebugFiles(p.Config.GetOCR().DebugMaxAge)
	}
}
