package warmup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/rental-cache/pkg/metrics"
)

// WarmupJobs counts finished warmup jobs by result (filled, failed).
var WarmupJobs = promauto.With(metrics.Registry).NewCounterVec(
	prometheus.CounterOpts{
		Name: "rental_cache_warmup_jobs_total",
		Help: "Total number of cache warmup jobs by result",
	},
	[]string{"result"},
)
