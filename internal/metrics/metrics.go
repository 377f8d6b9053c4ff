// Package metrics exposes search progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/newthinker/retsign/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "retsign"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	trialsTotal   *prometheus.CounterVec
	trialDuration prometheus.Histogram
	trialScore    prometheus.Histogram
	bestScore     prometheus.Gauge
	bestTrial     prometheus.Gauge
	finalScore    prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		trialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_total",
				Help:      "Total number of search trials by status",
			},
			[]string{"status"},
		),
		trialDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_duration_seconds",
				Help:      "Wall-clock time to build, train and score one configuration",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		trialScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_auc",
				Help:      "Validation ROC-AUC of completed trials",
				Buckets:   prometheus.LinearBuckets(0.4, 0.05, 12),
			},
		),
		bestScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "best_auc",
				Help:      "Best validation ROC-AUC found so far",
			},
		),
		bestTrial: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "best_trial",
				Help:      "Number of the trial holding the best score",
			},
		),
		finalScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "final_auc",
				Help:      "ROC-AUC of the refit model",
			},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by outcome",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600},
			},
			[]string{"stage"},
		),
	}

	reg.MustRegister(r.trialsTotal)
	reg.MustRegister(r.trialDuration)
	reg.MustRegister(r.trialScore)
	reg.MustRegister(r.bestScore)
	reg.MustRegister(r.bestTrial)
	reg.MustRegister(r.finalScore)
	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.stageDuration)

	return r
}

// ObserveTrial records a finished trial.
func (r *Registry) ObserveTrial(t search.Trial) {
	r.trialsTotal.WithLabelValues(string(t.Status)).Inc()
	r.trialDuration.Observe(t.Duration.Seconds())
	if t.Status == search.StatusComplete {
		r.trialScore.Observe(t.Score)
	}
}

// ObserveBest records a new best trial.
func (r *Registry) ObserveBest(t search.Trial) {
	r.bestScore.Set(t.Score)
	r.bestTrial.Set(float64(t.Number))
}

// SetFinalScore records the refit score.
func (r *Registry) SetFinalScore(score float64) {
	r.finalScore.Set(score)
}

// RecordStage records how long a pipeline stage took.
func (r *Registry) RecordStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a pipeline run outcome.
func (r *Registry) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

var _ search.Observer = (*Registry)(nil)
