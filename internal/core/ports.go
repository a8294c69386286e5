package core

import (
	"context"
	"time"
)

// CacheStore persists the full ordered contents of a dedup cache
type CacheStore interface {
	// Load returns the persisted records in insertion order
	Load(ctx context.Context) ([]CacheRecord, error)

	// Save replaces the persisted records
	Save(ctx context.Context, records []CacheRecord) error
}

// DedupCache is an at-most-once gate
type DedupCache interface {
	IsDuplicate(key string) bool
	Add(content string) bool
	Flush(ctx context.Context) error
	Len() int
}

// Notifier delivers the summary of a matched message
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// MediaFetcher downloads an attachment into dir and returns the file path
type MediaFetcher interface {
	Fetch(ctx context.Context, ref MediaRef, dir string) (string, error)
}

// TextRecognizer turns an encoded image into the text it contains
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Automation drives one browser session. Each call makes a single attempt.
type Automation interface {
	Navigate(ctx context.Context, url string) error
	ClickPrimaryButton(ctx context.Context) error
	// PerformJoinClicks uses the password click sequence when password is non-empty
	PerformJoinClicks(ctx context.Context, password string) error
}

// SessionPool hands out browser sessions, one task at a time per session
type SessionPool interface {
	Acquire(ctx context.Context) (Automation, error)
	Release(session Automation)
	Size() int
	Close() error
}

// PasswordExtractor recovers a password from message text
type PasswordExtractor interface {
	ExtractFromText(text string) (string, bool)
}

// ImagePasswordExtractor recovers a password from an image file
type ImagePasswordExtractor interface {
	ExtractFromImage(ctx context.Context, path string) (string, bool)
}

// PreviewResolver finds the canonical target of a link
type PreviewResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// MessageFilter is the ignore gate. It returns a reason when the message
// should be dropped.
type MessageFilter interface {
	ShouldIgnore(msg *InboundMessage) (string, bool)
}

// Settings are the live-tunable pipeline values
type Settings interface {
	Keyword() string
	ImageDir() string
	MaxRetries() int
	RetryDelay() time.Duration
	URLTimeout() time.Duration
}

// Metrics records pipeline activity. A task that never got to start reports
// TaskFinished with zero elapsed time and no TaskStarted.
type Metrics interface {
	MessageHandled(outcome Outcome)
	NotificationFailed()
	TaskStarted()
	TaskFinished(state TaskState, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) MessageHandled(Outcome)                {}
func (nopMetrics) NotificationFailed()                   {}
func (nopMetrics) TaskStarted()                          {}
func (nopMetrics) TaskFinished(TaskState, time.Duration) {}

// NopMetrics discards everything
var NopMetrics Metrics = nopMetrics{}
