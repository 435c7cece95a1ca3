package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SubmissionsTotal *prometheus.CounterVec
	RewardsTotal     prometheus.Counter
	StreakLength     prometheus.Histogram

	UpstreamErrors *prometheus.CounterVec
	MintsTotal     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		SubmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creation_submissions_total",
			Help: "Creation submissions by outcome",
		}, []string{"outcome"}),
		RewardsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "token_rewards_total",
			Help: "Tokens credited for qualifying creations",
		}),
		StreakLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "streak_length_after_submission",
			Help:    "Current streak after a committed submission",
			Buckets: []float64{1, 2, 3, 5, 7, 14, 30, 60, 100, 365},
		}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Failures of external providers",
		}, []string{"provider"}),
		MintsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creation_mints_total",
			Help: "Coin mint attempts by outcome",
		}, []string{"outcome"}),
	}
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
