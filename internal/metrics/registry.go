package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type providerKey struct {
	Provider      string
	Operation     string
	Status        string
	ErrorCategory string
}

type extractionKey struct {
	Shape string
	Path  string
}

type fallbackKey struct {
	Flow   string
	Stage  string
	Reason string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	count   uint64
	sum     float64
}

func newHistogram(buckets []float64) *histogram {
	cloned := append([]float64(nil), buckets...)
	return &histogram{
		buckets: cloned,
		counts:  make([]uint64, len(cloned)),
	}
}

func (h *histogram) Observe(value float64) {
	h.count++
	h.sum += value
	for i, upper := range h.buckets {
		if value <= upper {
			h.counts[i]++
		}
	}
}

type registry struct {
	mu sync.Mutex

	providerRequests map[providerKey]uint64
	providerLatency  map[providerKey]*histogram

	extractions     map[extractionKey]uint64
	stageFallbacks  map[fallbackKey]uint64
	queueDeliveries map[string]uint64
}

func newRegistry() *registry {
	return &registry{
		providerRequests: make(map[providerKey]uint64),
		providerLatency:  make(map[providerKey]*histogram),
		extractions:      make(map[extractionKey]uint64),
		stageFallbacks:   make(map[fallbackKey]uint64),
		queueDeliveries:  make(map[string]uint64),
	}
}

var globalRegistry = newRegistry()

func RecordProviderCall(provider string, operation string, status string, errorCategory string, duration time.Duration) {
	globalRegistry.recordProviderCall(providerKey{
		Provider:      provider,
		Operation:     operation,
		Status:        status,
		ErrorCategory: errorCategory,
	}, duration)
}

// RecordExtraction counts which recovery path the extractor took for a shape.
func RecordExtraction(shape string, path string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.extractions[extractionKey{Shape: shape, Path: path}]++
}

// RecordStageFallback counts a pipeline stage that substituted default content.
func RecordStageFallback(flow string, stage string, reason string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.stageFallbacks[fallbackKey{Flow: flow, Stage: stage, Reason: reason}]++
}

// RecordQueueDelivery counts offline queue replay outcomes (delivered, failed, expired).
func RecordQueueDelivery(outcome string, n int) {
	if n <= 0 {
		return
	}
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.queueDeliveries[outcome] += uint64(n)
}

func PrometheusText() string {
	return globalRegistry.renderPrometheus()
}

func ResetForTests() {
	globalRegistry = newRegistry()
}

func (r *registry) recordProviderCall(key providerKey, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providerRequests[key]++
	h, ok := r.providerLatency[key]
	if !ok {
		h = newHistogram(defaultDurationBuckets)
		r.providerLatency[key] = h
	}
	h.Observe(duration.Seconds())
}

func (r *registry) renderPrometheus() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var builder strings.Builder

	builder.WriteString("# HELP advisor_provider_requests_total Total model provider requests.\n")
	builder.WriteString("# TYPE advisor_provider_requests_total counter\n")
	providerReqKeys := make([]providerKey, 0, len(r.providerRequests))
	for key := range r.providerRequests {
		providerReqKeys = append(providerReqKeys, key)
	}
	sort.Slice(providerReqKeys, func(i, j int) bool {
		return providerReqKeys[i].String() < providerReqKeys[j].String()
	})
	for _, key := range providerReqKeys {
		builder.WriteString(fmt.Sprintf(
			"advisor_provider_requests_total{provider=%q,operation=%q,status=%q,error_category=%q} %d\n",
			key.Provider, key.Operation, key.Status, key.ErrorCategory, r.providerRequests[key],
		))
	}

	builder.WriteString("# HELP advisor_provider_request_duration_seconds Model provider request duration in seconds.\n")
	builder.WriteString("# TYPE advisor_provider_request_duration_seconds histogram\n")
	providerLatencyKeys := make([]providerKey, 0, len(r.providerLatency))
	for key := range r.providerLatency {
		providerLatencyKeys = append(providerLatencyKeys, key)
	}
	sort.Slice(providerLatencyKeys, func(i, j int) bool {
		return providerLatencyKeys[i].String() < providerLatencyKeys[j].String()
	})
	for _, key := range providerLatencyKeys {
		writeHistogram(
			&builder,
			"advisor_provider_request_duration_seconds",
			map[string]string{
				"provider":       key.Provider,
				"operation":      key.Operation,
				"status":         key.Status,
				"error_category": key.ErrorCategory,
			},
			r.providerLatency[key],
		)
	}

	builder.WriteString("# HELP advisor_extraction_total Structured extraction results by recovery path.\n")
	builder.WriteString("# TYPE advisor_extraction_total counter\n")
	extractionKeys := make([]extractionKey, 0, len(r.extractions))
	for key := range r.extractions {
		extractionKeys = append(extractionKeys, key)
	}
	sort.Slice(extractionKeys, func(i, j int) bool {
		return extractionKeys[i].String() < extractionKeys[j].String()
	})
	for _, key := range extractionKeys {
		builder.WriteString(fmt.Sprintf(
			"advisor_extraction_total{shape=%q,path=%q} %d\n",
			key.Shape, key.Path, r.extractions[key],
		))
	}

	builder.WriteString("# HELP advisor_stage_fallback_total Pipeline stages that fell back to default content.\n")
	builder.WriteString("# TYPE advisor_stage_fallback_total counter\n")
	fallbackKeys := make([]fallbackKey, 0, len(r.stageFallbacks))
	for key := range r.stageFallbacks {
		fallbackKeys = append(fallbackKeys, key)
	}
	sort.Slice(fallbackKeys, func(i, j int) bool {
		return fallbackKeys[i].String() < fallbackKeys[j].String()
	})
	for _, key := range fallbackKeys {
		builder.WriteString(fmt.Sprintf(
			"advisor_stage_fallback_total{flow=%q,stage=%q,reason=%q} %d\n",
			key.Flow, key.Stage, key.Reason, r.stageFallbacks[key],
		))
	}

	builder.WriteString("# HELP advisor_queue_deliveries_total Offline queue replay outcomes.\n")
	builder.WriteString("# TYPE advisor_queue_deliveries_total counter\n")
	outcomes := make([]string, 0, len(r.queueDeliveries))
	for outcome := range r.queueDeliveries {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		builder.WriteString(fmt.Sprintf(
			"advisor_queue_deliveries_total{outcome=%q} %d\n",
			outcome, r.queueDeliveries[outcome],
		))
	}

	return builder.String()
}

func writeHistogram(builder *strings.Builder, metricName string, labels map[string]string, h *histogram) {
	for i, bucket := range h.buckets {
		builder.WriteString(fmt.Sprintf(
			"%s_bucket{%s,le=%q} %d\n",
			metricName,
			formatLabels(labels),
			formatFloat(bucket),
			h.counts[i],
		))
	}
	builder.WriteString(fmt.Sprintf(
		"%s_bucket{%s,le=\"+Inf\"} %d\n",
		metricName,
		formatLabels(labels),
		h.count,
	))
	builder.WriteString(fmt.Sprintf("%s_sum{%s} %g\n", metricName, formatLabels(labels), h.sum))
	builder.WriteString(fmt.Sprintf("%s_count{%s} %d\n", metricName, formatLabels(labels), h.count))
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", key, labels[key]))
	}
	return strings.Join(parts, ",")
}

func formatFloat(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", value), "0"), ".")
}

func (k providerKey) String() string {
	return strings.Join([]string{k.Provider, k.Operation, k.Status, k.ErrorCategory}, "|")
}

func (k extractionKey) String() string {
	return k.Shape + "|" + k.Path
}

func (k fallbackKey) String() string {
	return strings.Join([]string{k.Flow, k.Stage, k.Reason}, "|")
}
