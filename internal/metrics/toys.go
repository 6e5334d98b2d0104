// Package metrics exposes toy fit metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/sawpanic/prewutils/internal/fit"
)

const namespace = "prewutils"

// ToyMetrics records toy fits. It implements the runner's Recorder.
type ToyMetrics struct {
	registry *prometheus.Registry

	ToysStarted  *prometheus.CounterVec
	ToysFinished *prometheus.CounterVec
	FitDuration  *prometheus.HistogramVec
	Chi2         *prometheus.SummaryVec
	Evaluations  *prometheus.HistogramVec
	ActiveToys   prometheus.Gauge
}

// NewToyMetrics registers all collectors on a private registry.
func NewToyMetrics() *ToyMetrics {
	m := &ToyMetrics{
		registry: prometheus.NewRegistry(),

		ToysStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "toys_started_total",
				Help:      "Number of toy fits started per energy",
			},
			[]string{"energy"},
		),

		ToysFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "toys_finished_total",
				Help:      "Number of finished toy fits per energy and result",
			},
			[]string{"energy", "result"},
		),

		FitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "toy_fit_duration_seconds",
				Help:      "Wall time of one toy including generation and minimization",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"energy"},
		),

		Chi2: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  namespace,
				Name:       "toy_fit_chi2",
				Help:       "Final chi-squared of successful toy fits",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"energy"},
		),

		Evaluations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "toy_fit_evaluations",
				Help:      "Function evaluations of the last minimizer stage",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
			},
			[]string{"energy"},
		),

		ActiveToys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "toys_active",
				Help:      "Toy fits currently running",
			},
		),
	}

	m.registry.MustRegister(
		m.ToysStarted,
		m.ToysFinished,
		m.FitDuration,
		m.Chi2,
		m.Evaluations,
		m.ActiveToys,
	)
	return m
}

func (m *ToyMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *ToyMetrics) ToyStarted(energy int) {
	m.ToysStarted.WithLabelValues(strconv.Itoa(energy)).Inc()
	m.ActiveToys.Inc()
}

func (m *ToyMetrics) ToyFinished(energy int, res fit.Result, elapsed time.Duration, err error) {
	e := strconv.Itoa(energy)
	m.ActiveToys.Dec()
	m.FitDuration.WithLabelValues(e).Observe(elapsed.Seconds())
	if err != nil {
		m.ToysFinished.WithLabelValues(e, "failed").Inc()
		return
	}
	result := "converged"
	if !res.Converged {
		result = "not_converged"
	}
	m.ToysFinished.WithLabelValues(e, result).Inc()
	m.Chi2.WithLabelValues(e).Observe(res.Chi2)
	m.Evaluations.WithLabelValues(e).Observe(float64(res.Evaluations))
}

// Status summarises the finished toys of one energy.
type Status struct {
	Energy       int     `json:"energy"`
	Converged    float64 `json:"converged"`
	NotConverged float64 `json:"not_converged"`
	Failed       float64 `json:"failed"`
	FailureRatio float64 `json:"failure_ratio"`
}

// Status reads the finished counters back for energy.
func (m *ToyMetrics) Status(energy int) Status {
	e := strconv.Itoa(energy)
	s := Status{
		Energy:       energy,
		Converged:    m.counterValue(e, "converged"),
		NotConverged: m.counterValue(e, "not_converged"),
		Failed:       m.counterValue(e, "failed"),
	}
	if total := s.Converged + s.NotConverged + s.Failed; total > 0 {
		s.FailureRatio = (s.NotConverged + s.Failed) / total
	}
	return s
}

func (m *ToyMetrics) counterValue(energy, result string) float64 {
	c, err := m.ToysFinished.GetMetricWithLabelValues(energy, result)
	if err != nil {
		return 0
	}
	var out io_prometheus_client.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
