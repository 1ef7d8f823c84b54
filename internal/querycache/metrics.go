package querycache

import "github.com/prometheus/client_golang/prometheus"

var (
	lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_querycache_lookups_total",
		Help: "Cache lookups by cache and result (hit or miss).",
	}, []string{"cache", "result"})

	invalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_querycache_invalidations_total",
		Help: "Cache invalidations by cache.",
	}, []string{"cache"})

	discards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_querycache_discarded_results_total",
		Help: "Fetch results dropped because their entry went away.",
	}, []string{"cache"})
)

func init() { prometheus.MustRegister(lookups, invalidations, discards) }
