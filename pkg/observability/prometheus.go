package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface on top of client_golang
// collectors.
type Prometheus struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	packagesTotal   prometheus.Counter
	fetchTotal      *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	peersTotal      *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	cacheBytes      prometheus.Counter
	httpTotal       *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergraph_resolve_total",
			Help: "Number of resolution runs by outcome.",
		}, []string{"outcome"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peergraph_resolve_duration_seconds",
			Help:    "Time taken to resolve a set of requirements into a snapshot.",
			Buckets: prometheus.DefBuckets,
		}),
		packagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peergraph_resolved_packages_total",
			Help: "Total number of final packages produced by resolution runs.",
		}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergraph_registry_fetch_total",
			Help: "Package metadata lookups by cache status and outcome.",
		}, []string{"cached", "outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peergraph_registry_fetch_duration_seconds",
			Help:    "Time taken to obtain package metadata.",
			Buckets: prometheus.DefBuckets,
		}),
		peersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergraph_peer_resolutions_total",
			Help: "Peer dependency resolutions by source.",
		}, []string{"source"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergraph_cache_operations_total",
			Help: "Cache operations by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peergraph_cache_written_bytes_total",
			Help: "Bytes written to the cache.",
		}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peergraph_http_requests_total",
			Help: "Outgoing HTTP requests by host and status.",
		}, []string{"host", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peergraph_http_request_duration_seconds",
			Help:    "Outgoing HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}
	reg.MustRegister(
		p.resolveTotal,
		p.resolveDuration,
		p.packagesTotal,
		p.fetchTotal,
		p.fetchDuration,
		p.peersTotal,
		p.cacheTotal,
		p.cacheBytes,
		p.httpTotal,
		p.httpDuration,
	)
	return p
}

// Install registers p as the global hooks of every kind.
func (p *Prometheus) Install() {
	SetResolveHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnResolveStart(context.Context, int) {}

func (p *Prometheus) OnResolveComplete(_ context.Context, packages int, d time.Duration, err error) {
	p.resolveTotal.WithLabelValues(outcome(err)).Inc()
	p.resolveDuration.Observe(d.Seconds())
	p.packagesTotal.Add(float64(packages))
}

func (p *Prometheus) OnPackageFetched(_ context.Context, _ string, cached bool, d time.Duration, err error) {
	c := "false"
	if cached {
		c = "true"
	}
	p.fetchTotal.WithLabelValues(c, outcome(err)).Inc()
	if !cached {
		p.fetchDuration.Observe(d.Seconds())
	}
}

func (p *Prometheus) OnPeerResolved(_ context.Context, source string) {
	p.peersTotal.WithLabelValues(source).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheTotal.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	p.httpTotal.WithLabelValues(host, statusClass(status)).Inc()
	p.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.httpTotal.WithLabelValues(host, "error").Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}

var (
	_ ResolveHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)
