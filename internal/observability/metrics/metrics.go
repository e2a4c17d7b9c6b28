// Package metrics exposes xorcrackd counters and latencies in the Prometheus
// text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts   []uint64
	sum      float64
	total    uint64
	exemplar *metricExemplar
}

type metricExemplar struct {
	traceID string
	value   float64
}

var (
	rpcRequests   = newCounterVec("xorcrack_rpc_requests_total", "Total number of Toolkit RPC requests.", []string{"method"})
	rpcErrors     = newCounterVec("xorcrack_rpc_errors_total", "Total number of Toolkit RPC requests that failed.", []string{"method", "code"})
	rpcLatency    = newHistogramVec("xorcrack_rpc_duration_seconds", "Latency of Toolkit RPC handlers by method and status code.", []string{"method", "code"})
	keysRecovered = newCounterVec("xorcrack_keys_recovered_total", "Number of single-byte XOR keys recovered.", []string{"alphabet"})
	operations    = newCounterVec("xorcrack_operations_executed_total", "Number of pipeline operations executed.", []string{"operation"})

	collectors = []collector{rpcRequests, rpcErrors, rpcLatency, keysRecovered, operations}

	totalRequests uint64
)

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string) *histogramVec {
	return &histogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		values:  make(map[string]*histogramValue),
	}
}

func (cv *counterVec) add(delta float64, values ...string) {
	if len(values) != len(cv.labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(cv.labels), len(values)))
	}
	key := strings.Join(values, "\x00")
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) value(values ...string) float64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[strings.Join(values, "\x00")]
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", cv.values[key])
	}
}

func (hv *histogramVec) observe(ctx context.Context, sample float64, values ...string) {
	if len(values) != len(hv.labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(hv.labels), len(values)))
	}
	key := strings.Join(values, "\x00")
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	i := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[i]++
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		entry.exemplar = &metricExemplar{traceID: sc.TraceID().String(), value: sample}
	}
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	for _, key := range sortedKeys(hv.values) {
		entry := hv.values[key]
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name + "_bucket")
			writeLabels(sb, hv.labels, key, fmt.Sprintf("le=%q", fmt.Sprintf("%g", upper)))
			fmt.Fprintf(sb, " %d\n", cumulative)
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name + "_bucket")
		writeLabels(sb, hv.labels, key, `le="+Inf"`)
		fmt.Fprintf(sb, " %d\n", cumulative)

		sb.WriteString(hv.name + "_sum")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %g", entry.sum)
		if entry.exemplar != nil {
			fmt.Fprintf(sb, " # {trace_id=\"%s\"} %g", escapeLabel(entry.exemplar.traceID), entry.exemplar.value)
		}
		sb.WriteString("\n")

		sb.WriteString(hv.name + "_count")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %d\n", entry.total)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeLabels(sb *strings.Builder, labels []string, key, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	parts := strings.Split(key, "\x00")
	pairs := make([]string, 0, len(labels)+1)
	for i, label := range labels {
		pairs = append(pairs, label+"=\""+escapeLabel(parts[i])+"\"")
	}
	if extra != "" {
		pairs = append(pairs, extra)
	}
	sb.WriteString("{" + strings.Join(pairs, ",") + "}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, metricType)
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range collectors {
			c.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// UnaryServerInterceptor counts requests, errors and latency per method.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		RecordRPCRequest(info.FullMethod)
		resp, err := handler(ctx, req)
		code := status.Code(err).String()
		if err != nil {
			rpcErrors.add(1, info.FullMethod, code)
		}
		rpcLatency.observe(ctx, time.Since(start).Seconds(), info.FullMethod, code)
		return resp, err
	}
}

// RecordRPCRequest increments the request counter for method.
func RecordRPCRequest(method string) {
	rpcRequests.add(1, method)
	atomic.AddUint64(&totalRequests, 1)
}

// RecordKeyRecovered counts a key recovered with the named alphabet.
func RecordKeyRecovered(alphabet string) {
	if alphabet = strings.TrimSpace(alphabet); alphabet == "" {
		alphabet = "default"
	}
	keysRecovered.add(1, alphabet)
}

// RecordOperation counts one executed pipeline step.
func RecordOperation(name string) {
	operations.add(1, name)
}

// TotalRequests returns the total number of RPC requests served since process start.
func TotalRequests() uint64 {
	return atomic.LoadUint64(&totalRequests)
}
