package route

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breadcrumbs",
		Name:      "capture_total",
		Help:      "Route capture attempts by outcome",
	}, []string{"outcome"})

	bridgeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breadcrumbs",
		Name:      "bridge_nodes_total",
		Help:      "Bridge nodes inserted by route repair",
	})

	goalReachedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breadcrumbs",
		Name:      "goal_reached_total",
		Help:      "Routes completed by reaching the goal",
	})

	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "breadcrumbs",
		Name:      "graph_build_duration_seconds",
		Help:      "Time spent building a route graph",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
	})

	graphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "breadcrumbs",
		Name:      "graph_nodes",
		Help:      "Node count of built route graphs",
		Buckets:   prometheus.ExponentialBuckets(2, 2, 12),
	})

	persistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breadcrumbs",
		Name:      "persist_errors_total",
		Help:      "Trail load/save failures",
	}, []string{"op"})
)
