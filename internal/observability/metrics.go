// Package observability provides Prometheus metrics for the API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts posts accepted by the create endpoint.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_created_total",
		Help: "Total number of blog posts created",
	})

	// PostsDeleted counts posts removed by the delete-by-user endpoint.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_deleted_total",
		Help: "Total number of blog posts deleted",
	})

	// CacheRequests counts cache lookups by key class and outcome (hit/miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_cache_requests_total",
		Help: "Total cache lookups by key class and outcome",
	}, []string{"key", "outcome"})
)
