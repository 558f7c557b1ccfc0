package identifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgdirectory",
		Subsystem: "identifier",
		Name:      "allocations_total",
		Help:      "Employee identifier allocations by outcome.",
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orgdirectory",
		Subsystem: "identifier",
		Name:      "insert_retries_total",
		Help:      "Employee creations retried after a unique violation on a generated identifier.",
	})
)
