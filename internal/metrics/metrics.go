package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups the trainer's Prometheus instruments. A nil *Collectors
// is valid and records nothing.
type Collectors struct {
	attemptsBuilt   *prometheus.CounterVec
	buildFailures   *prometheus.CounterVec
	attemptsDone    *prometheus.CounterVec
	answers         *prometheus.CounterVec
	scorePercentage prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		attemptsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "attempts_built_total",
			Help:      "Attempts successfully built, by kind and ramp.",
		}, []string{"kind", "ramp"}),
		buildFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "attempt_build_failures_total",
			Help:      "Attempt builds rejected, by pool that ran short.",
		}, []string{"pool"}),
		attemptsDone: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "attempts_finished_total",
			Help:      "Finished attempts, by mode and result.",
		}, []string{"mode", "result"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "answers_recorded_total",
			Help:      "Answers recorded, by correctness.",
		}, []string{"correct"}),
		scorePercentage: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trainer",
			Name:      "attempt_score_percentage",
			Help:      "Score percentage of finished attempts.",
			Buckets:   []float64{50, 60, 70, 80, 85, 90, 95, 100},
		}),
	}
}

func (c *Collectors) AttemptBuilt(kind string, ramp bool) {
	if c == nil {
		return
	}
	c.attemptsBuilt.WithLabelValues(kind, strconv.FormatBool(ramp)).Inc()
}

func (c *Collectors) BuildFailed(pool string) {
	if c == nil {
		return
	}
	c.buildFailures.WithLabelValues(pool).Inc()
}

func (c *Collectors) AnswerRecorded(correct bool) {
	if c == nil {
		return
	}
	c.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (c *Collectors) AttemptFinished(mode string, passed bool, percentage float64) {
	if c == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	c.attemptsDone.WithLabelValues(mode, result).Inc()
	c.scorePercentage.Observe(percentage)
}
