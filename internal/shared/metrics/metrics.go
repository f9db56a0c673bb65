package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	mappingStartedTotal   atomic.Uint64
	mappingCompletedTotal atomic.Uint64
	mappingFailedTotal    atomic.Uint64
	mappingHaltedTotal    atomic.Uint64

	mappingDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncMappingStarted increments the started counter.
func IncMappingStarted() {
	mappingStartedTotal.Add(1)
}

// IncMappingCompleted increments the completed counter.
func IncMappingCompleted() {
	mappingCompletedTotal.Add(1)
}

// IncMappingFailed increments the failed counter.
func IncMappingFailed() {
	mappingFailedTotal.Add(1)
}

// IncMappingHalted increments the halted counter (safety stage refused processing).
func IncMappingHalted() {
	mappingHaltedTotal.Add(1)
}

// ObserveMappingDurationMs records a full mapping run duration in milliseconds.
func ObserveMappingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	mappingDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "mapping_started_total", "Total mapping sessions started", mappingStartedTotal.Load())
	writeCounter(&buf, "mapping_completed_total", "Total mapping sessions completed", mappingCompletedTotal.Load())
	writeCounter(&buf, "mapping_failed_total", "Total mapping sessions failed", mappingFailedTotal.Load())
	writeCounter(&buf, "mapping_halted_total", "Total mapping sessions halted by the safety stage", mappingHaltedTotal.Load())
	writeHistogram(&buf, "mapping_duration_ms", "Mapping session duration in milliseconds", mappingDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ElapsedMs returns elapsed time since start in milliseconds.
func ElapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
