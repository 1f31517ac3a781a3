package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gateway"

// Service owns the prometheus registry of the process and the gateway's
// lifecycle collectors.
type Service struct {
	Registry *prometheus.Registry

	outcomes       *prometheus.CounterVec
	submitAttempts *prometheus.CounterVec
	nonceGaps      prometheus.Counter
	confirmation   prometheus.Histogram
	inflight       prometheus.Gauge
}

// New creates a Service with a fresh registry.
func New() (*Service, error) {
	reg := prometheus.NewRegistry()

	s := &Service{
		Registry: reg,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_outcomes_total",
			Help:      "Terminal transaction lifecycle outcomes by status.",
		}, []string{"status"}),
		submitAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_attempts_total",
			Help:      "Raw transaction submission attempts by result.",
		}, []string{"result"}),
		nonceGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nonce_gaps_total",
			Help:      "Nonce gaps recorded by the sequencer.",
		}),
		confirmation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_seconds",
			Help:      "Time from first submission to a terminal outcome.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_lifecycles",
			Help:      "Write lifecycles currently running.",
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.outcomes,
		s.submitAttempts,
		s.nonceGaps,
		s.confirmation,
		s.inflight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return s, nil
}

// ObserveOutcome records a terminal outcome and how long it took.
func (s *Service) ObserveOutcome(status string, elapsed time.Duration) {
	s.outcomes.WithLabelValues(status).Inc()
	if elapsed > 0 {
		s.confirmation.Observe(elapsed.Seconds())
	}
}

// SubmitAttempt counts a submission attempt.
func (s *Service) SubmitAttempt(result string) {
	s.submitAttempts.WithLabelValues(result).Inc()
}

// NonceGap counts a recorded nonce gap.
func (s *Service) NonceGap() {
	s.nonceGaps.Inc()
}

// InFlight moves the running lifecycle gauge.
func (s *Service) InFlight(delta int) {
	s.inflight.Add(float64(delta))
}
