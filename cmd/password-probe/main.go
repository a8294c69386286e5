package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/console"
	"github.com/mikey/link-joiner/internal/adapters/store"
	"github.com/mikey/link-joiner/internal/cache"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/di"
	"github.com/mikey/link-joiner/internal/exclusion"
	"github.com/mikey/link-joiner/internal/factory"
	"github.com/mikey/link-joiner/internal/password"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type probeParams struct {
	dig.In

	Flags      *di.CLIFlags
	Config     *config.Config
	Runtime    *config.Runtime
	Logger     *zap.Logger
	Passwords  *password.Extractor
	Images     *password.ImageExtractor
	OCRFactory *factory.OCRFactory
	Browsers   *factory.BrowserFactory
}

func run(p probeParams) error {
	defer p.Logger.Sync()
	defer p.OCRFactory.Close()

	text, err := readInput(p.Flags.InputFile, p.Logger)
	if err != nil {
		return err
	}

	msg := &core.InboundMessage{
		ID:         1,
		Text:       text,
		ReceivedAt: time.Now(),
	}
	if p.Flags.ImageFile != "" {
		msg.Photo = &core.MediaRef{FileID: p.Flags.ImageFile}
	}

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("Text length: %d characters\n", len([]rune(text)))
	if msg.Photo != nil {
		fmt.Printf("Photo: %s\n", p.Flags.ImageFile)
	}
	fmt.Printf("\n")

	if !p.Flags.Join {
		return analyze(p, msg)
	}
	return join(p, msg)
}

// analyze prints the links and password without touching a browser
func analyze(p probeParams, msg *core.InboundMessage) error {
	fmt.Printf("=== Analysis ===\n")
	start := time.Now()

	urls := core.MatchKeyword(core.CollectURLs(msg), p.Runtime.Keyword())
	for _, u := range urls {
		fmt.Printf("URL: %s\n", u)
	}
	if len(urls) == 0 {
		fmt.Printf("No link contains %q\n", p.Runtime.Keyword())
	}

	source := "text"
	pw, found := p.Passwords.ExtractFromText(msg.Text)
	if !found && msg.Photo != nil {
		if p.Images == nil {
			fmt.Printf("OCR is disabled, photo skipped\n")
		} else {
			source = "image"
			pw, found = p.Images.ExtractFromImage(context.Background(), msg.Photo.FileID)
		}
	}

	fmt.Printf("\n=== Results ===\n")
	if found {
		fmt.Printf("Password: %s (from %s)\n", pw, source)
	} else {
		fmt.Printf("Password: none\n")
	}
	fmt.Printf("Processing time: %v\n", time.Since(start))
	return nil
}

// join runs the whole pipeline once with in-memory caches and console output
func join(p probeParams, msg *core.InboundMessage) error {
	ctx := context.Background()
	logger := p.Logger

	pool, err := p.Browsers.CreatePool()
	if err != nil {
		return err
	}
	defer pool.Close()

	deps := core.PipelineDeps{
		Filter:     exclusion.NewChecker(p.Runtime, exclusion.Rules{}, logger),
		Settings:   p.Runtime,
		Messages:   cache.NewMessageCache(ctx, store.NewMemoryStore(), 10, 1, logger),
		Notifier:   console.NewNotifier(os.Stdout, logger, p.Flags.Verbose),
		Media:      copyFetcher{},
		Passwords:  p.Passwords,
		Dispatcher: core.NewDispatcher(pool, pool.Size(), p.Runtime, logger, nil),
	}
	if p.Images != nil {
		deps.Images = p.Images
	}

	report, err := core.NewMessagePipeline(deps, logger).Handle(ctx, msg)
	if err != nil {
		return err
	}
	console.PrintReport(os.Stdout, report)
	return nil
}

func readInput(path string, logger *zap.Logger) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
		logger.Info("Reading message from file", zap.String("file", path))
	} else {
		logger.Info("Reading message from stdin")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return string(data), nil
}

// copyFetcher treats the media reference as a local path and copies it into
// dir, since the pipeline deletes fetched photos when it is done
type copyFetcher struct{}

func (copyFetcher) Fetch(ctx context.Context, ref core.MediaRef, dir string) (string, error) {
	data, err := os.ReadFile(ref.FileID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "probe_"+filepath.Base(ref.FileID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
