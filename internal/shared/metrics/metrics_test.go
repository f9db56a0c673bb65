package metrics

import (
	"strings"
	"testing"
)

func TestRenderExposesCounters(t *testing.T) {
	IncMappingStarted()
	IncMappingCompleted()
	ObserveMappingDurationMs(750)

	out := Render()
	for _, name := range []string{
		"mapping_started_total",
		"mapping_completed_total",
		"mapping_failed_total",
		"mapping_halted_total",
		"mapping_duration_ms_bucket",
		"mapping_duration_ms_sum",
		"mapping_duration_ms_count",
	} {
		if !strings.Contains(out, name) {
			t.Errorf("render output missing %s", name)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(50)
	h.Observe(5000)

	snap := h.Snapshot()
	if snap.count != 4 {
		t.Fatalf("count = %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 || snap.counts[2] != 0 {
		t.Fatalf("bucket counts = %v", snap.counts)
	}
	if snap.sum != 5105 {
		t.Fatalf("sum = %v", snap.sum)
	}
}
