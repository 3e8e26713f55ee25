package observability

import (
	"sort"
	"sync"
	"time"
)

// Metrics keeps in-process per-route counters: request volume, error
// codes and cumulative latency. Read back through Snapshot on the
// admin surface.
type Metrics struct {
	mu     sync.Mutex
	routes map[routeKey]*routeStats
}

type routeKey struct {
	method string
	path   string
}

type routeStats struct {
	requests     int64
	serverErrors int64
	totalLatency time.Duration
	errorCodes   map[string]int64
}

// RouteSnapshot is one route's counters at a point in time.
type RouteSnapshot struct {
	Method       string           `json:"method"`
	Path         string           `json:"path"`
	Requests     int64            `json:"requests"`
	ServerErrors int64            `json:"server_errors"`
	AvgLatencyMS float64          `json:"avg_latency_ms"`
	ErrorCodes   map[string]int64 `json:"error_codes,omitempty"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{routes: make(map[routeKey]*routeStats)}
}

// RecordRequest counts a completed request and its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.statsFor(routeKey{method: method, path: path})
	stats.requests++
	stats.totalLatency += duration
	if status >= 500 {
		stats.serverErrors++
	}
}

// RecordError counts a request that ended in a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsFor(routeKey{method: method, path: path}).errorCodes[code]++
}

// Snapshot returns a stable-ordered copy of every route's counters.
func (m *Metrics) Snapshot() []RouteSnapshot {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RouteSnapshot, 0, len(m.routes))
	for key, stats := range m.routes {
		snapshot := RouteSnapshot{
			Method:       key.method,
			Path:         key.path,
			Requests:     stats.requests,
			ServerErrors: stats.serverErrors,
		}
		if stats.requests > 0 {
			snapshot.AvgLatencyMS = float64(stats.totalLatency.Milliseconds()) / float64(stats.requests)
		}
		if len(stats.errorCodes) > 0 {
			snapshot.ErrorCodes = make(map[string]int64, len(stats.errorCodes))
			for code, n := range stats.errorCodes {
				snapshot.ErrorCodes[code] = n
			}
		}
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (m *Metrics) statsFor(key routeKey) *routeStats {
	stats, ok := m.routes[key]
	if !ok {
		stats = &routeStats{errorCodes: make(map[string]int64)}
		m.routes[key] = stats
	}
	return stats
}
