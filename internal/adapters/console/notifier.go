// Package console prints notifications to a terminal
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// Notifier writes summaries to an io.Writer. It serves dry runs and the
// probe command.
type Notifier struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *zap.Logger
	verbose bool
}

// NewNotifier creates a new console notifier
func NewNotifier(out io.Writer, logger *zap.Logger, verbose bool) *Notifier {
	return &Notifier{
		out:     out,
		logger:  logger,
		verbose: verbose,
	}
}

// Notify prints the summary
func (n *Notifier) Notify(ctx context.Context, note *core.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.logger.Debug("Printing notification", zap.Int("links", len(note.Links)))

	fmt.Fprintf(n.out, "\n=== New Link ===\n")
	for _, link := range note.Links {
		fmt.Fprintf(n.out, "Link: %s\n", link)
	}
	if note.PhotoPath != "" {
		fmt.Fprintf(n.out, "Photo: %s\n", note.PhotoPath)
	}
	if n.verbose {
		fmt.Fprintf(n.out, "\nMessage:\n%s\n", note.Text)
	}
	_, err := fmt.Fprintf(n.out, "\n")
	return err
}

// PrintReport writes the outcome of a handled message
func PrintReport(out io.Writer, r *core.MessageReport) {
	fmt.Fprintf(out, "=== Results ===\n")
	fmt.Fprintf(out, "Outcome: %s\n", r.Outcome)
	if r.IgnoreReason != "" {
		fmt.Fprintf(out, "Ignore reason: %s\n", r.IgnoreReason)
	}
	for _, u := range r.URLs {
		fmt.Fprintf(out, "URL: %s\n", u)
	}
	if r.Password != "" {
		fmt.Fprintf(out, "Password: %s\n", r.Password)
	}
	fmt.Fprintf(out, "Notified: %t\n", r.Notified)
	for _, task := range r.Tasks {
		fmt.Fprintf(out, "Task %s: %s after %d attempt(s) in %v",
			task.URL, task.State, task.Attempts, task.FinishedAt.Sub(task.StartedAt))
		if task.Reason != "" {
			fmt.Fprintf(out, " (%s)", task.Reason)
		}
		fmt.Fprintf(out, "\n")
	}
}
