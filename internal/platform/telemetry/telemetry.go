// Package telemetry records HTTP and API operation metrics and serves them in
// the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emmanuel-123tech/africareai/internal/platform/middleware"
)

// durationBuckets are the request duration bucket boundaries in seconds.
var durationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram keeps non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		cum[i] = running
	}
	return cum
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Counters
// ---------------------------------------------------------------------------

// counterStore holds monotonically increasing counters keyed by a "|"-joined
// label tuple.
type counterStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{items: make(map[string]*int64)}
}

func (s *counterStore) inc(key string) {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if p, ok = s.items[key]; !ok {
			p = new(int64)
			s.items[key] = p
		}
		s.mu.Unlock()
	}
	atomic.AddInt64(p, 1)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// sortedKeys keeps the exposition output stable between scrapes.
func (s *counterStore) sortedKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// PoolStats reports database pool occupancy at scrape time.
type PoolStats func() (acquired, idle int32)

// Provider owns all metric state for one server.
type Provider struct {
	service string
	version string

	histMu     sync.RWMutex
	histograms map[string]*histogram // keyed by method|route|status

	operations *counterStore // resource|action
	active     int64

	poolStats PoolStats
}

func NewProvider(service, version string) *Provider {
	return &Provider{
		service:    service,
		version:    version,
		histograms: make(map[string]*histogram),
		operations: newCounterStore(),
	}
}

// WithPoolStats adds database pool gauges to the exposition.
func (p *Provider) WithPoolStats(fn PoolStats) *Provider {
	p.poolStats = fn
	return p
}

// LabelsKey builds the map key for a request duration histogram.
func LabelsKey(method, route, statusCode string) string {
	return method + "|" + route + "|" + statusCode
}

func (p *Provider) histogramFor(key string) *histogram {
	p.histMu.RLock()
	h, ok := p.histograms[key]
	p.histMu.RUnlock()
	if ok {
		return h
	}
	p.histMu.Lock()
	defer p.histMu.Unlock()
	if h, ok = p.histograms[key]; !ok {
		h = newHistogram(durationBuckets)
		p.histograms[key] = h
	}
	return h
}

// RequestCount returns the number of requests observed for the label tuple.
func (p *Provider) RequestCount(method, route, statusCode string) int64 {
	p.histMu.RLock()
	defer p.histMu.RUnlock()
	if h, ok := p.histograms[LabelsKey(method, route, statusCode)]; ok {
		return h.Count()
	}
	return 0
}

// OperationCount returns how many audited API calls hit resource with action.
func (p *Provider) OperationCount(resource, action string) int64 {
	return p.operations.get(resource + "|" + action)
}

// MetricsMiddleware records request durations by method, route pattern and
// status, and tracks in-flight requests.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&p.active, -1)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.histogramFor(LabelsKey(c.Request().Method, route, strconv.Itoa(status))).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// AuditRecorder counts API operations by resource and action. It plugs into
// middleware.Audit so the two views of traffic stay consistent.
func (p *Provider) AuditRecorder() middleware.AuditRecorder {
	return middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		p.operations.inc(entry.Resource + "|" + entry.Action)
		return nil
	})
}

// PrometheusHandler serves the metrics in Prometheus text format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP africareai_build_info Build metadata.\n")
		b.WriteString("# TYPE africareai_build_info gauge\n")
		fmt.Fprintf(&b, "africareai_build_info{service=%q,version=%q} 1\n\n", p.service, p.version)

		p.writeDurations(&b)

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&p.active))

		b.WriteString("# HELP api_operation_count Audited API operations by resource and action.\n")
		b.WriteString("# TYPE api_operation_count counter\n")
		for _, key := range p.operations.sortedKeys() {
			parts := strings.SplitN(key, "|", 2)
			if len(parts) != 2 {
				continue
			}
			fmt.Fprintf(&b, "api_operation_count{resource=%q,action=%q} %d\n",
				parts[0], parts[1], p.operations.get(key))
		}
		b.WriteByte('\n')

		if p.poolStats != nil {
			acquired, idle := p.poolStats()
			writeGauge(&b, "db_pool_acquired_connections", "Database pool connections in use.", int64(acquired))
			writeGauge(&b, "db_pool_idle_connections", "Idle database pool connections.", int64(idle))
		}

		return c.String(http.StatusOK, b.String())
	}
}

func (p *Provider) writeDurations(b *strings.Builder) {
	const name = "http_server_request_duration_seconds"
	fmt.Fprintf(b, "# HELP %s Duration of HTTP requests in seconds.\n", name)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)

	p.histMu.RLock()
	keys := make([]string, 0, len(p.histograms))
	for k := range p.histograms {
		keys = append(keys, k)
	}
	p.histMu.RUnlock()
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		writeHistogram(b, name, labels, p.histogramFor(key))
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func writeGauge(b *strings.Builder, name, help string, v int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %d\n\n", name, v)
}
