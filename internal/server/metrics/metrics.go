// Package metrics holds the Prometheus collectors of the server. Each
// Collector owns its registry, so tests can build as many as they like.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipelab"

type Collector struct {
	registry *prometheus.Registry

	RPCs        *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	RecipesPublished prometheus.Counter
	Notifications    *prometheus.CounterVec

	RecordsMoved     *prometheus.CounterVec
	MoveFailures     *prometheus.CounterVec
	ProfileMerges    prometheus.Counter
	BatchesCommitted *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total number of handled RPCs by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling time in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RecipesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_published_total",
			Help:      "Recipes published for the first time.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications created by type.",
		}, []string{"type"}),
		RecordsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_records_moved_total",
			Help:      "Records handed to a new owner, by collection.",
		}, []string{"collection"}),
		MoveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_move_failures_total",
			Help:      "Failed ownership moves, by collection.",
		}, []string{"collection"}),
		ProfileMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_profile_merges_total",
			Help:      "Profile moves that hit an existing profile under the new owner.",
		}),
		BatchesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_batches_committed_total",
			Help:      "Committed write groups during ownership moves, by collection.",
		}, []string{"collection"}),
	}

	c.registry.MustRegister(
		c.RPCs, c.RPCDuration,
		c.RecipesPublished, c.Notifications,
		c.RecordsMoved, c.MoveFailures, c.ProfileMerges, c.BatchesCommitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRPC records one handled call.
func (c *Collector) ObserveRPC(method, code string, took time.Duration) {
	c.RPCs.WithLabelValues(method, code).Inc()
	c.RPCDuration.WithLabelValues(method).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
