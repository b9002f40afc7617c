package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total dispatch runs by outcome",
		},
		[]string{"outcome"}, // notified|no_workers|store_unavailable|abandoned
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Duration of one job dispatch run",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkersNotified = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_workers_notified",
			Help:    "Workers notified per successful dispatch run",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(DispatchRunsTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(WorkersNotified)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
