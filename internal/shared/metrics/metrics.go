package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	generationStartedTotal   atomic.Uint64
	generationCompletedTotal atomic.Uint64
	generationFailedTotal    atomic.Uint64
	generationSharedTotal    atomic.Uint64
	cacheReusedTotal         atomic.Uint64
	statementsAnalyzedTotal  atomic.Uint64
	reaggregatedUsersTotal   atomic.Uint64
	reaggregateFailedTotal   atomic.Uint64

	generationDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncGenerationStarted counts external generation calls issued.
func IncGenerationStarted() {
	generationStartedTotal.Add(1)
}

// IncGenerationCompleted counts generation calls whose output was stored.
func IncGenerationCompleted() {
	generationCompletedTotal.Add(1)
}

// IncGenerationFailed counts failed generation attempts.
func IncGenerationFailed() {
	generationFailedTotal.Add(1)
}

// IncGenerationShared counts callers that joined an in-flight generation.
func IncGenerationShared() {
	generationSharedTotal.Add(1)
}

// IncCacheReused counts requests served from a stored complete result.
func IncCacheReused() {
	cacheReusedTotal.Add(1)
}

// IncStatementsAnalyzed counts uploaded statements turned into breakdowns.
func IncStatementsAnalyzed() {
	statementsAnalyzedTotal.Add(1)
}

// IncReaggregated counts users whose trends the worker rebuilt.
func IncReaggregated() {
	reaggregatedUsersTotal.Add(1)
}

// IncReaggregateFailed counts users the worker could not rebuild.
func IncReaggregateFailed() {
	reaggregateFailedTotal.Add(1)
}

// ObserveGenerationDurationMs records a generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	generationDuration.Observe(value)
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
	writeCounter(&buf, "generation_started_total", "Total external generation calls started", generationStartedTotal.Load())
	writeCounter(&buf, "generation_completed_total", "Total generation results stored", generationCompletedTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total generation attempts failed", generationFailedTotal.Load())
	writeCounter(&buf, "generation_shared_total", "Total callers that joined an in-flight generation", generationSharedTotal.Load())
	writeCounter(&buf, "analysis_cache_reused_total", "Total analyses served from cache", cacheReusedTotal.Load())
	writeCounter(&buf, "statements_analyzed_total", "Total uploaded statements analyzed", statementsAnalyzedTotal.Load())
	writeCounter(&buf, "trends_reaggregated_total", "Total users re-aggregated by the worker", reaggregatedUsersTotal.Load())
	writeCounter(&buf, "trends_reaggregate_failed_total", "Total worker re-aggregations failed", reaggregateFailedTotal.Load())
	writeHistogram(&buf, "generation_duration_ms", "Generation duration in milliseconds", generationDuration.Snapshot())
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
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// counts are already cumulative: Observe bumps every bucket whose bound fits.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), snap.counts[i])
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
