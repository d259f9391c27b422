package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chain labels.
const (
	AgentStandard = "standard"
	AgentVoting   = "voting"
)

// Metrics holds Prometheus metrics for simulation runs.
type Metrics struct {
	TrialsTotal         *prometheus.CounterVec
	CallsPerTrial       *prometheus.HistogramVec
	ExhaustedStepsTotal prometheus.Counter
	RejectionsTotal     prometheus.Counter
	TrialDuration       prometheus.Histogram
}

// NewMetrics creates simulation metrics registered with reg. A nil reg
// creates unregistered collectors, which is what tests want.
//
// Metrics:
//   - maker_simulation_trials_total{agent,result}
//   - maker_simulation_calls_per_trial{agent}
//   - maker_simulation_exhausted_steps_total
//   - maker_simulation_rejections_total
//   - maker_simulation_trial_duration_seconds
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TrialsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maker_simulation_trials_total",
				Help: "Total number of simulated trials",
			},
			[]string{"agent", "result"}, // result: "success" or "failure"
		),
		CallsPerTrial: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maker_simulation_calls_per_trial",
				Help:    "Oracle calls spent per trial",
				Buckets: prometheus.ExponentialBuckets(1, 2, 16),
			},
			[]string{"agent"},
		),
		ExhaustedStepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "maker_simulation_exhausted_steps_total",
			Help: "Voting steps that hit the sample cap",
		}),
		RejectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "maker_simulation_rejections_total",
			Help: "Candidates discarded by the red-flag filter",
		}),
		TrialDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "maker_simulation_trial_duration_seconds",
			Help:    "Wall time of one trial",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(agent string, r ChainResult) {
	if m == nil {
		return
	}
	result := "failure"
	if r.Success {
		result = "success"
	}
	m.TrialsTotal.WithLabelValues(agent, result).Inc()
	m.CallsPerTrial.WithLabelValues(agent).Observe(float64(r.Calls))
	if agent == AgentVoting {
		m.ExhaustedStepsTotal.Add(float64(r.ExhaustedSteps))
		m.RejectionsTotal.Add(float64(r.Rejections))
	}
}
