// Package metrics exposes Prometheus instruments for sampling runs.
package metrics

import (
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphacore/internal/env"
)

// Metrics owns a private registry so tests and parallel runs never collide
// on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	episodes *prometheus.CounterVec
	reward   prometheus.Histogram
	length   prometheus.Histogram
	bestIC   prometheus.Gauge
	elites   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		episodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alphacore_episodes_total",
			Help: "Finished construction episodes by outcome",
		}, []string{"outcome"}),
		reward: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "alphacore_episode_reward",
			Help:    "Reward of finished episodes",
			Buckets: prometheus.LinearBuckets(-1, 0.1, 21),
		}),
		length: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "alphacore_expression_tokens",
			Help:    "Body tokens per finished episode",
			Buckets: []float64{1, 2, 3, 5, 8, 11, 14, 20},
		}),
		bestIC: f.NewGauge(prometheus.GaugeOpts{
			Name: "alphacore_pool_best_ic",
			Help: "Best IC in the hall of fame",
		}),
		elites: f.NewGauge(prometheus.GaugeOpts{
			Name: "alphacore_pool_elites",
			Help: "Entries in the hall of fame",
		}),
	}
}

// ObserveEpisode records one finished episode. It has the env.Observer
// signature.
func (m *Metrics) ObserveEpisode(s env.Summary) {
	m.episodes.WithLabelValues(s.Outcome.String()).Inc()
	m.reward.Observe(s.Reward)
	if n := len(s.Tokens) - 1; n >= 0 {
		m.length.Observe(float64(n))
	}
}

// SetPool updates the hall-of-fame gauges. NaN leaves the best IC unchanged.
func (m *Metrics) SetPool(bestIC float64, elites int) {
	if !math.IsNaN(bestIC) {
		m.bestIC.Set(bestIC)
	}
	m.elites.Set(float64(elites))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
