package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lookups counts GetOrRefresh calls by outcome ("hit", "miss", "forced").
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_tree_cache_lookups_total",
		Help: "Tree cache lookups by result",
	}, []string{"cache", "result"})

	// refreshes counts rebuild attempts by outcome ("success", "failure").
	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_tree_cache_refreshes_total",
		Help: "Tree cache rebuilds by outcome",
	}, []string{"cache", "outcome"})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_tree_cache_build_duration_seconds",
		Help:    "Time spent rebuilding a cached tree",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"cache"})
)
