package di

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/browser"
	"github.com/mikey/link-joiner/internal/adapters/clova"
	"github.com/mikey/link-joiner/internal/adapters/preview"
	"github.com/mikey/link-joiner/internal/adapters/telegram"
	"github.com/mikey/link-joiner/internal/cache"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/exclusion"
	"github.com/mikey/link-joiner/internal/factory"
	"github.com/mikey/link-joiner/internal/logging"
	"github.com/mikey/link-joiner/internal/metrics"
	"github.com/mikey/link-joiner/internal/password"
	"github.com/mikey/link-joiner/internal/ports"
	"github.com/mikey/link-joiner/internal/utils"
)

// Caches holds the two dedup caches. Links is nil when the link cache is
// disabled.
type Caches struct {
	Messages *cache.ContentCache
	Links    *cache.ContentCache
}

// Flush persists both caches
func (c *Caches) Flush(ctx context.Context) error {
	if err := c.Messages.Flush(ctx); err != nil {
		return err
	}
	if c.Links != nil {
		return c.Links.Flush(ctx)
	}
	return nil
}

// Shutdown lets components ask the process to stop
type Shutdown struct {
	once sync.Once
	ch   chan struct{}
}

// NewShutdown creates an unsignalled Shutdown
func NewShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

// Request signals shutdown. Extra calls do nothing.
func (s *Shutdown) Request() {
	s.once.Do(func() { close(s.ch) })
}

// Done is closed once shutdown was requested
func (s *Shutdown) Done() <-chan struct{} {
	return s.ch
}

// PipelineParams are the components the message pipeline is built from
type PipelineParams struct {
	dig.In

	Config     *config.Config
	Runtime    *config.Runtime
	Logger     *zap.Logger
	Checker    *exclusion.Checker
	Caches     *Caches
	Notifier   core.Notifier
	Media      *telegram.MediaFetcher
	Passwords  *password.Extractor
	Images     *password.ImageExtractor
	Dispatcher *core.Dispatcher
	Metrics    core.Metrics
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}
	if err := container.Provide(config.NewRuntime); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := container.Provide(NewShutdown); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}
	if err := container.Provide(func(r *metrics.Recorder) core.Metrics { return r }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(r *metrics.Recorder) clova.Recorder { return r }); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewOCRFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewBrowserFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTelegramFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register bot connection
	if err := container.Provide(func(f *factory.TelegramFactory) (*tgbotapi.BotAPI, error) {
		return f.CreateBot()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(bot *tgbotapi.BotAPI) telegram.API { return bot }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TelegramFactory, api telegram.API) *telegram.MediaFetcher {
		return f.CreateMediaFetcher(api)
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(f *factory.NotifierFactory, api telegram.API) (core.Notifier, error) {
		return f.CreateNotifier(api)
	}); err != nil {
		return nil, err
	}

	// Register caches
	if err := container.Provide(func(f *factory.CacheFactory) (*Caches, error) {
		ctx := context.Background()
		messages, err := f.CreateMessageCache(ctx)
		if err != nil {
			return nil, err
		}
		links, err := f.CreateLinkCache(ctx)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &Caches{Messages: messages, Links: links}, nil
	}); err != nil {
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

	// Register browser pool and dispatcher
	if err := container.Provide(func(f *factory.BrowserFactory) (*browser.Pool, error) {
		return f.CreatePool()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		pool *browser.Pool,
		runtime *config.Runtime,
		logger *zap.Logger,
		m core.Metrics,
	) *core.Dispatcher {
		return core.NewDispatcher(pool, pool.Size(), runtime, logger, m)
	}); err != nil {
		return nil, err
	}

	// Register ignore gate
	if err := container.Provide(func(cfg *config.Config, runtime *config.Runtime, logger *zap.Logger) *exclusion.Checker {
		p := cfg.GetPipeline()
		return exclusion.NewChecker(runtime, exclusion.Rules{
			TargetChatID:    p.TargetChatID,
			ExcludedChatIDs: p.ExcludedChatIDs,
			AllowChannels:   p.AllowChannels,
		}, logger)
	}); err != nil {
		return nil, err
	}

	// Register message pipeline
	if err := container.Provide(NewPipeline); err != nil {
		return nil, err
	}

	// Register bot commands and message source
	if err := container.Provide(func(
		f *factory.TelegramFactory,
		api telegram.API,
		runtime *config.Runtime,
		cfg *config.Config,
		caches *Caches,
		dispatcher *core.Dispatcher,
		pool *browser.Pool,
		shutdown *Shutdown,
	) *telegram.Commands {
		return f.CreateCommands(api, runtime, statusFunc(cfg, caches, dispatcher, pool), shutdown.Request)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TelegramFactory, api telegram.API, commands *telegram.Commands) (ports.MessageSource, error) {
		return f.CreateSource(api, commands)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// NewPipeline wires the message pipeline. Optional collaborators that are
// absent stay nil interfaces.
func NewPipeline(p PipelineParams) *core.MessagePipeline {
	deps := core.PipelineDeps{
		Filter:     p.Checker,
		Settings:   p.Runtime,
		Messages:   p.Caches.Messages,
		Notifier:   p.Notifier,
		Media:      p.Media,
		Passwords:  p.Passwords,
		Dispatcher: p.Dispatcher,
		Metrics:    p.Metrics,
	}
	if p.Caches.Links != nil {
		deps.Links = p.Caches.Links
	}
	if p.Images != nil {
		deps.Images = p.Images
	}
	if pc := p.Config.GetPreview(); pc.Enabled {
		deps.Previews = preview.NewResolver(pc.Timeout, p.Logger)
	}
	return core.NewMessagePipeline(deps, p.Logger)
}

func statusFunc(cfg *config.Config, caches *Caches, dispatcher *core.Dispatcher, pool *browser.Pool) func() telegram.Status {
	target := cfg.GetPipeline().TargetChatID
	return func() telegram.Status {
		st := telegram.Status{
			TargetChatID:   target,
			Workers:        dispatcher.Workers(),
			RunningTasks:   dispatcher.Running(),
			MessagesCached: caches.Messages.Len(),
			BrowserActive:  pool.Active(),
		}
		if caches.Links != nil {
			st.LinksCached = caches.Links.Len()
		}
		return st
	}
}
