// Package browser drives Chrome through go-rod to open chat-room links and
// click through the join flow.
package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/config"
)

// Timing supplies the live-tunable delays
type Timing interface {
	ClickInterval() time.Duration
	PageLoadWait() time.Duration
}

// edge keeps clicks off the very border of the viewport
const edge = 10

// input is the set of CDP calls the click flow makes. Every call runs under
// the caller's context.
type input interface {
	viewport(ctx context.Context) (float64, float64, error)
	mouse(ctx context.Context, ev proto.InputDispatchMouseEvent) error
	insertText(ctx context.Context, text string) error
}

// pageInput sends input to a rod page. rod's Mouse keeps the page it was
// created with, so events are dispatched directly on a page bound to ctx.
type pageInput struct {
	page *rod.Page
}

func (p pageInput) viewport(ctx context.Context) (float64, float64, error) {
	m, err := proto.PageGetLayoutMetrics{}.Call(p.page.Context(ctx))
	if err != nil {
		return 0, 0, fmt.Errorf("read viewport: %w", err)
	}
	if m.CSSLayoutViewport == nil {
		return 0, 0, fmt.Errorf("read viewport: no layout viewport")
	}
	return float64(m.CSSLayoutViewport.ClientWidth), float64(m.CSSLayoutViewport.ClientHeight), nil
}

func (p pageInput) mouse(ctx context.Context, ev proto.InputDispatchMouseEvent) error {
	return ev.Call(p.page.Context(ctx))
}

func (p pageInput) insertText(ctx context.Context, text string) error {
	return p.page.Context(ctx).InsertText(text)
}

// Session owns one browser with a single page
type Session struct {
	id      int
	cfg     config.BrowserConfig
	timing  Timing
	browser *rod.Browser
	page    *rod.Page
	in      input
	launch  *launcher.Launcher
	dataDir string
	logger  *zap.Logger
}

// NewSession launches a browser with its own profile directory
func NewSession(id int, cfg config.BrowserConfig, timing Timing, logger *zap.Logger) (*Session, error) {
	dataDir, err := os.MkdirTemp("", "rod-link-joiner-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create browser profile dir: %w", err)
	}

	l := launcher.New().
		Headless(cfg.Headless).
		UserDataDir(dataDir).
		Set("disable-notifications").
		Set("disable-popup-blocking").
		Set("disable-infobars").
		Set("start-maximized")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	u, err := l.Launch()
	if err != nil {
		os.RemoveAll(dataDir)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		os.RemoveAll(dataDir)
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		l.Kill()
		os.RemoveAll(dataDir)
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	logger = logger.With(zap.Int("session", id))
	logger.Info("Browser session started",
		zap.String("platform", cfg.Platform),
		zap.Bool("headless", cfg.Headless))

	return &Session{
		id:      id,
		cfg:     cfg,
		timing:  timing,
		browser: b,
		page:    page,
		in:      pageInput{page: page},
		launch:  l,
		dataDir: dataDir,
		logger:  logger,
	}, nil
}

// Navigate opens url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	s.logger.Debug("Page loaded", zap.String("url", url))
	return nil
}

// ClickPrimaryButton clicks the first element matching the primary selector
// and waits for the next page to settle
func (s *Session) ClickPrimaryButton(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, s.cfg.ClickTimeout)
	defer cancel()

	el, err := s.page.Context(clickCtx).Element(s.cfg.PrimarySelector)
	if err != nil {
		return fmt.Errorf("find %q: %w", s.cfg.PrimarySelector, err)
	}
	pt, err := el.WaitInteractable()
	if err != nil {
		return fmt.Errorf("wait for %q: %w", s.cfg.PrimarySelector, err)
	}
	if err := click(clickCtx, s.in, config.Point{X: pt.X, Y: pt.Y}); err != nil {
		return fmt.Errorf("click %q: %w", s.cfg.PrimarySelector, err)
	}
	s.logger.Debug("Primary button clicked")
	return sleep(ctx, s.timing.PageLoadWait())
}

// PerformJoinClicks clicks the configured coordinates in order. With a
// password it uses the password sequence and types the password after
// the configured step.
func (s *Session) PerformJoinClicks(ctx context.Context, password string) error {
	points := s.cfg.Coordinates
	if password != "" {
		points = s.cfg.PasswordCoordinates
	}
	if len(points) == 0 {
		return fmt.Errorf("no click coordinates configured for platform %s", s.cfg.Platform)
	}

	width, height, err := s.in.viewport(ctx)
	if err != nil {
		return err
	}

	for i, pt := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := Clamp(pt, width, height)
		if err := click(ctx, s.in, target); err != nil {
			return fmt.Errorf("click step %d: %w", i+1, err)
		}
		s.logger.Debug("Clicked",
			zap.Int("step", i+1),
			zap.Int("of", len(points)),
			zap.Float64("x", target.X),
			zap.Float64("y", target.Y))

		if password != "" && i == s.cfg.PasswordStep {
			if err := s.in.insertText(ctx, password); err != nil {
				return fmt.Errorf("type password: %w", err)
			}
			s.logger.Debug("Password entered")
		}

		if err := sleep(ctx, s.timing.ClickInterval()); err != nil {
			return err
		}
	}
	return nil
}

// click moves to pt and presses and releases the left button there
func click(ctx context.Context, in input, pt config.Point) error {
	down, up := 1, 0
	events := []proto.InputDispatchMouseEvent{
		{Type: proto.InputDispatchMouseEventTypeMouseMoved, X: pt.X, Y: pt.Y},
		{Type: proto.InputDispatchMouseEventTypeMousePressed, X: pt.X, Y: pt.Y,
			Button: proto.InputMouseButtonLeft, Buttons: &down, ClickCount: 1},
		{Type: proto.InputDispatchMouseEventTypeMouseReleased, X: pt.X, Y: pt.Y,
			Button: proto.InputMouseButtonLeft, Buttons: &up, ClickCount: 1},
	}
	for _, ev := range events {
		if err := in.mouse(ctx, ev); err != nil {
			return fmt.Errorf("%s: %w", ev.Type, err)
		}
	}
	return nil
}

// Close shuts the browser down and removes its profile directory
func (s *Session) Close() error {
	var firstErr error
	if err := s.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	s.launch.Kill()
	if err := os.RemoveAll(s.dataDir); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("remove profile dir: %w", err)
	}
	s.logger.Info("Browser session closed")
	return firstErr
}

// Clamp keeps a point inside a width x height viewport, leaving a small margin
func Clamp(pt config.Point, width, height float64) config.Point {
	limit := func(v, max float64) float64 {
		if max > edge && v > max-edge {
			v = max - edge
		}
		if v < 0 {
			v = 0
		}
		return v
	}
	return config.Point{X: limit(pt.X, width), Y: limit(pt.Y, height)}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
