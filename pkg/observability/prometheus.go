package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports hook events as Prometheus metrics. Each collector owns
// a private registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	LayoutPasses   prometheus.Counter
	LayoutDuration prometheus.Histogram
	LayoutBoxes    prometheus.Gauge
	DroppedRefs    prometheus.Gauge

	Searches       prometheus.Counter
	SearchDuration prometheus.Histogram
	Teleports      *prometheus.CounterVec

	StoreOps *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with metric names under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		LayoutPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_passes_total",
			Help:      "Total number of full layout passes",
		}),
		LayoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		LayoutBoxes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_boxes",
			Help:      "Boxes in the most recent layout",
		}),
		DroppedRefs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_dropped_references",
			Help:      "Dangling model and filter references dropped by the most recent layout",
		}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of executed search queries",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		Teleports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teleports_total",
			Help:      "Teleport attempts by outcome",
		}, []string{"outcome"}),
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "State store operations",
		}, []string{"backend", "operation", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.LayoutPasses, c.LayoutDuration, c.LayoutBoxes, c.DroppedRefs,
		c.Searches, c.SearchDuration, c.Teleports,
		c.StoreOps,
		c.HTTPRequests, c.HTTPDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OnLayout implements MapHooks.
func (c *Collector) OnLayout(_ context.Context, boxes, _, dropped int, d time.Duration) {
	c.LayoutPasses.Inc()
	c.LayoutDuration.Observe(d.Seconds())
	c.LayoutBoxes.Set(float64(boxes))
	c.DroppedRefs.Set(float64(dropped))
}

// OnSearch implements MapHooks.
func (c *Collector) OnSearch(_ context.Context, _ int, d time.Duration) {
	c.Searches.Inc()
	c.SearchDuration.Observe(d.Seconds())
}

// OnTeleport implements MapHooks.
func (c *Collector) OnTeleport(_ context.Context, ok bool) {
	outcome := "centered"
	if !ok {
		outcome = "skipped"
	}
	c.Teleports.WithLabelValues(outcome).Inc()
}

// OnStoreRead implements StoreHooks.
func (c *Collector) OnStoreRead(_ context.Context, backend string, hit bool, err error) {
	status := "miss"
	switch {
	case err != nil:
		status = "error"
	case hit:
		status = "hit"
	}
	c.StoreOps.WithLabelValues(backend, "read", status).Inc()
}

// OnStoreWrite implements StoreHooks.
func (c *Collector) OnStoreWrite(_ context.Context, backend string, _ int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StoreOps.WithLabelValues(backend, "write", status).Inc()
}

// OnRequest implements HTTPHooks.
func (c *Collector) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ MapHooks   = (*Collector)(nil)
	_ StoreHooks = (*Collector)(nil)
	_ HTTPHooks  = (*Collector)(nil)
)
