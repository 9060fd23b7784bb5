// Package metrics constructs the prometheus collectors used by the node and
// exposes them through an http handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rewardchain"

// Set of collectors for block application.
var (
	BlocksApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_applied_total",
		Help:      "Number of blocks applied to the ledger.",
	})

	BlocksDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_discarded_total",
		Help:      "Number of produced blocks discarded by the supply audit.",
	})

	HeadBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "head_block",
		Help:      "Number of the latest applied block.",
	})

	BlockDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "block_apply_seconds",
		Help:      "Time spent applying one block.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Number of operations recorded, by kind.",
	}, []string{"kind"})

	TransactionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_rejected_total",
		Help:      "Number of transactions dropped from a block because they failed.",
	})

	Mempool = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mempool_transactions",
		Help:      "Number of transactions waiting for a block.",
	})

	Cashouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cashouts_total",
		Help:      "Number of posts paid out.",
	})
)

// Set of collectors for the http layer.
var (
	Requests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Number of http requests handled.",
	})

	Errors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Number of http requests that failed.",
	})

	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panics_total",
		Help:      "Number of panics recovered in http handlers.",
	})
)

// Handler returns the handler serving the collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
