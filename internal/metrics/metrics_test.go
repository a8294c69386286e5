package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mikey/link-joiner/internal/core"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	NewRecorder()

	before := testutil.ToFloat64(Messages.WithLabelValues("duplicate"))
	r.MessageHandled(core.OutcomeDuplicate)
	assert.Equal(t, before+1, testutil.ToFloat64(Messages.WithLabelValues("duplicate")))

	running := testutil.ToFloat64(URLTasksRunning)
	r.TaskStarted()
	assert.Equal(t, running+1, testutil.ToFloat64(URLTasksRunning))

	failed := testutil.ToFloat64(URLTasks.WithLabelValues("failed"))
	r.TaskFinished(core.TaskFailed, 3*time.Second)
	assert.Equal(t, running, testutil.ToFloat64(URLTasksRunning))
	assert.Equal(t, failed+1, testutil.ToFloat64(URLTasks.WithLabelValues("failed")))

	ocr := testutil.ToFloat64(OCRRequests.WithLabelValues("clova", "ok"))
	r.OCRRequest("clova", "ok")
	assert.Equal(t, ocr+1, testutil.ToFloat64(OCRRequests.WithLabelValues("clova", "ok")))

	notif := testutil.ToFloat64(NotificationFailures)
	r.NotificationFailed()
	assert.Equal(t, notif+1, testutil.ToFloat64(NotificationFailures))
}
