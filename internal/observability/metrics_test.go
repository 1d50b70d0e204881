package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockMetrics_RecordsCountersAndHistograms(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("keyword_extract_total", map[string]string{"status": "ok"})
	m.IncCounter("keyword_extract_total", map[string]string{"status": "ok"})
	m.ObserveHistogram("keyword_extract_duration_ms", 12.5, nil)

	assert.Equal(t, 2, m.Counters["keyword_extract_total"])
	assert.Equal(t, []float64{12.5}, m.Hists["keyword_extract_duration_ms"])
}

func TestOtelMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *OtelMetrics
	assert.NotPanics(t, func() {
		m.IncCounter("x", nil)
		m.ObserveHistogram("y", 1.0, nil)
	})
}
