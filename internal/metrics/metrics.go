// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

var (
	registerMetricsOnce sync.Once

	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_joiner_messages_total",
			Help: "Inbound messages by pipeline outcome",
		},
		[]string{"outcome"},
	)

	NotificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_joiner_notification_failures_total",
			Help: "Notifications that could not be delivered",
		},
	)

	URLTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_joiner_url_tasks_total",
			Help: "Finished URL tasks by result",
		},
		[]string{"result"},
	)

	URLTaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "link_joiner_url_task_duration_seconds",
			Help:    "URL task duration including retries",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"result"},
	)

	URLTasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "link_joiner_url_tasks_running",
			Help: "URL tasks currently holding a browser session",
		},
	)

	OCRRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_joiner_ocr_requests_total",
			Help: "OCR requests by provider and status",
		},
		[]string{"provider", "status"},
	)
)

// InitMetrics registers the collectors with the default registry
func InitMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(Messages, NotificationFailures, URLTasks, URLTaskDuration, URLTasksRunning, OCRRequests)
	})
}

// Recorder feeds the collectors. It satisfies core.Metrics and the OCR
// client's request recorder.
type Recorder struct{}

// NewRecorder registers the collectors and returns a recorder
func NewRecorder() *Recorder {
	InitMetrics()
	return &Recorder{}
}

var _ core.Metrics = (*Recorder)(nil)

func (Recorder) MessageHandled(outcome core.Outcome) {
	Messages.WithLabelValues(outcome.String()).Inc()
}

func (Recorder) NotificationFailed() {
	NotificationFailures.Inc()
}

func (Recorder) TaskStarted() {
	URLTasksRunning.Inc()
}

func (Recorder) TaskFinished(state core.TaskState, elapsed time.Duration) {
	if elapsed > 0 {
		URLTasksRunning.Dec()
	}
	URLTasks.WithLabelValues(state.String()).Inc()
	URLTaskDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
}

func (Recorder) OCRRequest(provider, status string) {
	OCRRequests.WithLabelValues(provider, status).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
