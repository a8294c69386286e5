package core

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// PipelineDeps groups the collaborators of a MessagePipeline. Links, Media,
// Images and Previews are optional.
type PipelineDeps struct {
	Filter     MessageFilter
	Settings   Settings
	Messages   DedupCache
	Links      DedupCache
	Notifier   Notifier
	Media      MediaFetcher
	Passwords  PasswordExtractor
	Images     ImagePasswordExtractor
	Previews   PreviewResolver
	Dispatcher *Dispatcher
	Metrics    Metrics
}

// MessagePipeline turns inbound messages into join attempts
type MessagePipeline struct {
	deps   PipelineDeps
	logger *zap.Logger
	wg     sync.WaitGroup
}

// admission is a message that passed every gate
type admission struct {
	msg  *InboundMessage
	urls []string
}

// NewMessagePipeline creates a new message pipeline
func NewMessagePipeline(deps PipelineDeps, logger *zap.Logger) *MessagePipeline {
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics
	}
	return &MessagePipeline{
		deps:   deps,
		logger: logger,
	}
}

// Handle runs the whole pipeline for one message and waits for its URL
// tasks. Expected outcomes are reported in the MessageReport.
func (p *MessagePipeline) Handle(ctx context.Context, msg *InboundMessage) (*MessageReport, error) {
	report, adm := p.admit(ctx, msg)
	if adm == nil {
		return report, nil
	}
	p.process(ctx, adm, report)
	return report, nil
}

// Submit runs the gates on the calling goroutine and the remaining steps in
// the background. Callers feed messages from a single loop so the caches
// have a single writer.
func (p *MessagePipeline) Submit(ctx context.Context, msg *InboundMessage) Outcome {
	report, adm := p.admit(ctx, msg)
	if adm == nil {
		return report.Outcome
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Message processing panicked",
					zap.Int64("message_id", msg.ID),
					zap.Any("panic", r),
					zap.Stack("stack"))
			}
		}()
		p.process(ctx, adm, report)
	}()
	return report.Outcome
}

// Wait blocks until all submitted messages are fully processed
func (p *MessagePipeline) Wait() {
	p.wg.Wait()
}

// admit applies the ignore gate, URL collection, keyword filter and dedup gate
func (p *MessagePipeline) admit(ctx context.Context, msg *InboundMessage) (*MessageReport, *admission) {
	report := &MessageReport{MessageID: msg.ID}

	if reason, ignore := p.deps.Filter.ShouldIgnore(msg); ignore {
		report.Outcome = OutcomeIgnored
		report.IgnoreReason = reason
		p.logger.Debug("Message ignored",
			zap.Int64("message_id", msg.ID),
			zap.Int64("chat_id", msg.ChatID),
			zap.String("reason", reason))
		p.deps.Metrics.MessageHandled(report.Outcome)
		return report, nil
	}

	keyword := p.deps.Settings.Keyword()
	collected := CollectURLs(msg)
	urls := MatchKeyword(collected, keyword)
	if len(urls) == 0 && p.deps.Previews != nil && msg.PreviewURL == "" {
		urls = p.resolvePreview(ctx, collected, keyword)
	}
	if len(urls) == 0 {
		report.Outcome = OutcomeNoLinks
		p.deps.Metrics.MessageHandled(report.Outcome)
		return report, nil
	}

	if !p.deps.Messages.Add(msg.Text) {
		report.Outcome = OutcomeDuplicate
		p.logger.Info("Duplicate message skipped",
			zap.Int64("message_id", msg.ID),
			zap.Error(ErrDuplicateContent))
		p.deps.Metrics.MessageHandled(report.Outcome)
		return report, nil
	}

	if p.deps.Links != nil {
		fresh := urls[:0:0]
		for _, u := range urls {
			if p.deps.Links.IsDuplicate(u) {
				p.logger.Debug("Link already processed", zap.String("url", u))
				continue
			}
			p.deps.Links.Add(u)
			fresh = append(fresh, u)
		}
		urls = fresh
		if len(urls) == 0 {
			report.Outcome = OutcomeDuplicate
			p.logger.Info("All links already processed",
				zap.Int64("message_id", msg.ID),
				zap.Error(ErrDuplicateContent))
			p.deps.Metrics.MessageHandled(report.Outcome)
			return report, nil
		}
	}

	report.URLs = urls
	report.Outcome = OutcomeDispatched
	p.logger.Info("Keyword links detected",
		zap.Int64("message_id", msg.ID),
		zap.Int64("chat_id", msg.ChatID),
		zap.Strings("urls", urls))
	return report, &admission{msg: msg, urls: urls}
}

// resolvePreview follows the first link that does not carry the keyword to
// its canonical target. Only that one link is fetched.
func (p *MessagePipeline) resolvePreview(ctx context.Context, collected []ExtractedURL, keyword string) []string {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}
	for _, u := range collected {
		if strings.Contains(strings.ToLower(u.URL), kw) {
			continue
		}
		target, err := p.deps.Previews.Resolve(ctx, u.URL)
		if err != nil {
			p.logger.Debug("Link preview resolution failed", zap.String("url", u.URL), zap.Error(err))
			return nil
		}
		return MatchKeyword([]ExtractedURL{{URL: target, Provenance: ProvenancePreview}}, keyword)
	}
	return nil
}

// process notifies, resolves the password and dispatches the URL tasks
func (p *MessagePipeline) process(ctx context.Context, adm *admission, report *MessageReport) {
	msg := adm.msg
	defer p.deps.Metrics.MessageHandled(report.Outcome)

	photoPath := p.fetchPhoto(ctx, msg)
	if photoPath != "" {
		defer func() {
			if err := os.Remove(photoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("Failed to remove downloaded photo", zap.String("path", photoPath), zap.Error(err))
			}
		}()
	}

	n := &Notification{
		Text:      FormatSummary(msg.Text, adm.urls),
		Links:     adm.urls,
		PhotoPath: photoPath,
	}
	if err := p.deps.Notifier.Notify(ctx, n); err != nil {
		p.deps.Metrics.NotificationFailed()
		p.logger.Error("Failed to send notification",
			zap.Int64("message_id", msg.ID),
			zap.Error(&NotificationFailedError{Cause: err}))
	} else {
		report.Notified = true
	}

	password, found := p.deps.Passwords.ExtractFromText(msg.Text)
	if !found && photoPath != "" && p.deps.Images != nil {
		password, found = p.deps.Images.ExtractFromImage(ctx, photoPath)
	}
	if found {
		report.Password = password
		p.logger.Info("Password extracted", zap.Int64("message_id", msg.ID), zap.String("password", password))
	} else {
		p.logger.Info("Proceeding without password",
			zap.Int64("message_id", msg.ID),
			zap.NamedError("reason", ErrPasswordNotFound))
	}

	report.Tasks = p.deps.Dispatcher.Dispatch(ctx, adm.urls, report.Password)

	failed := 0
	for _, t := range report.Tasks {
		if t.State == TaskFailed {
			failed++
		}
	}
	p.logger.Info("Message processed",
		zap.Int64("message_id", msg.ID),
		zap.Int("urls", len(report.Tasks)),
		zap.Int("failed", failed))
}

// fetchPhoto downloads the message photo once; an empty path means none
func (p *MessagePipeline) fetchPhoto(ctx context.Context, msg *InboundMessage) string {
	if msg.Photo == nil || p.deps.Media == nil {
		return ""
	}
	path, err := p.deps.Media.Fetch(ctx, *msg.Photo, p.deps.Settings.ImageDir())
	if err != nil {
		p.logger.Warn("Failed to download photo",
			zap.Int64("message_id", msg.ID),
			zap.Error(err))
		return ""
	}
	return path
}
