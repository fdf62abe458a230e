package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuotesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_quotes_total",
		Help: "Successful quotes per source",
	}, []string{"source"})

	QuoteErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_quote_errors_total",
		Help: "Quote failures per source and error kind",
	}, []string{"source", "kind"})

	QuoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arb_quote_latency_seconds",
		Help:    "Time to obtain a quote from one source",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	OpportunitiesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Opportunities that cleared the profit threshold",
	})

	SwapsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_swaps_total",
		Help: "Swap execution attempts by provider and outcome",
	}, []string{"provider", "result"})
)

func init() {
	prometheus.MustRegister(
		QuotesFetched,
		QuoteErrors,
		QuoteLatency,
		OpportunitiesFound,
		SwapsExecuted,
	)
}
