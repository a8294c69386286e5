package core

import (
	"time"
)

// Provenance records where in a message a URL was found
type Provenance int

const (
	ProvenanceText Provenance = iota
	ProvenanceEntity
	ProvenancePreview
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceText:
		return "text"
	case ProvenanceEntity:
		return "entity"
	case ProvenancePreview:
		return "preview"
	default:
		return "unknown"
	}
}

// ExtractedURL is a URL plus the part of the message it came from
type ExtractedURL struct {
	URL        string
	Provenance Provenance
}

// Entity is a rich-text span. Offset and Length count UTF-16 code units.
type Entity struct {
	Type   string
	Offset int
	Length int
	URL    string
}

// MediaRef points at an attachment held by the messaging service
type MediaRef struct {
	FileID   string
	FileSize int
}

// InboundMessage is the shape the pipeline needs from any messaging client
type InboundMessage struct {
	ID          int64
	ChatID      int64
	ChatTitle   string
	SenderID    int64
	SenderIsBot bool
	Outgoing    bool
	IsChannel   bool
	Text        string
	Entities    []Entity
	PreviewURL  string
	Photo       *MediaRef
	ReceivedAt  time.Time
}

// Notification is the summary sent to the configured destination
type Notification struct {
	Text      string
	Links     []string
	PhotoPath string
}

// TaskState is the lifecycle state of a URL task
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProcessingTask is one URL to join, with the password shared by its message
type ProcessingTask struct {
	ID         string
	URL        string
	Password   string
	State      TaskState
	Reason     string
	Err        error
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Outcome is how far a message got through the pipeline
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeNoLinks
	OutcomeDuplicate
	OutcomeDispatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeNoLinks:
		return "no_links"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// MessageReport summarizes the handling of one message
type MessageReport struct {
	MessageID    int64
	Outcome      Outcome
	IgnoreReason string
	URLs         []string
	Password     string
	Notified     bool
	Tasks        []ProcessingTask
}

// CacheRecord is one persisted dedup entry
type CacheRecord struct {
	Fingerprint string
	Content     string
}
