package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFetchCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(FetchesTotal.WithLabelValues("solar", FetchSynthetic))
	RecordFetch("solar", FetchSynthetic)
	RecordFetch("solar", FetchSynthetic)
	after := testutil.ToFloat64(FetchesTotal.WithLabelValues("solar", FetchSynthetic))
	assert.Equal(t, before+2, after)
}

func TestRecordWriteLabelsStatus(t *testing.T) {
	okBefore := testutil.ToFloat64(WritesTotal.WithLabelValues("wind", "create", "success"))
	failBefore := testutil.ToFloat64(WritesTotal.WithLabelValues("wind", "create", "failed"))

	RecordWrite("wind", "create", true)
	RecordWrite("wind", "create", false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(WritesTotal.WithLabelValues("wind", "create", "success")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(WritesTotal.WithLabelValues("wind", "create", "failed")))
}

func TestRecordExport(t *testing.T) {
	before := testutil.ToFloat64(ExportsTotal.WithLabelValues("hydro", "pdf", "success"))
	RecordExport("hydro", "pdf", true, 150*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ExportsTotal.WithLabelValues("hydro", "pdf", "success")))
}

func TestRecordSectionFailureAndCapture(t *testing.T) {
	// Should not panic
	RecordSectionFailure("chart")
	RecordCapture("timeout")
	RecordCapture("success")
}
