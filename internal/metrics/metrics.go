package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// CacheLookups counts cache reads by domain and result (hit, stale, miss).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garage",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cached query lookups, labeled by domain and result.",
	}, []string{"domain", "result"})

	// CacheFetches counts store round-trips triggered by the cache.
	CacheFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garage",
		Subsystem: "cache",
		Name:      "fetches_total",
		Help:      "Store fetches made on behalf of the query cache, labeled by domain and result.",
	}, []string{"domain", "result"})

	CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garage",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Domain invalidations after writes.",
	}, []string{"domain"})

	// Mutations counts writes by operation and outcome.
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garage",
		Subsystem: "queries",
		Name:      "mutations_total",
		Help:      "Write operations issued through the query client, labeled by op and result.",
	}, []string{"op", "result"})

	SignIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garage",
		Subsystem: "auth",
		Name:      "signins_total",
		Help:      "Sign-in attempts, labeled by result.",
	}, []string{"result"})
)

// Register registers garage metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			CacheLookups,
			CacheFetches,
			CacheInvalidations,
			Mutations,
			SignIns,
		)
	})
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
