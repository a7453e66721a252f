package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "codebattle"

// Submission results.
const (
	ResultPassed = "passed"
	ResultFailed = "failed"
	ResultError  = "error"
)

// Collector holds the battle service's Prometheus instruments. A nil
// *Collector is valid and records nothing.
type Collector struct {
	battlesCreated   prometheus.Counter
	battlesStarted   prometheus.Counter
	battlesCompleted *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	staleSubmissions prometheus.Counter
	judgeLatency     prometheus.Histogram
}

// New registers the instruments on reg. connections reports the number of
// open websocket connections at scrape time.
func New(reg prometheus.Registerer, connections func() int) *Collector {
	c := &Collector{
		battlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_created_total",
			Help:      "Battles created.",
		}),
		battlesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_started_total",
			Help:      "Battles moved to in-progress.",
		}),
		battlesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "battles_completed_total",
			Help:      "Battles completed, by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Judged submissions, by result.",
		}, []string{"result"}),
		staleSubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_submissions_total",
			Help:      "Correct submissions that arrived after their question was resolved.",
		}),
		judgeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_duration_seconds",
			Help:      "Time spent grading one submission.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	reg.MustRegister(
		c.battlesCreated,
		c.battlesStarted,
		c.battlesCompleted,
		c.submissions,
		c.staleSubmissions,
		c.judgeLatency,
	)
	if connections != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}, func() float64 { return float64(connections()) }))
	}
	return c
}

func (c *Collector) BattleCreated() {
	if c == nil {
		return
	}
	c.battlesCreated.Inc()
}

func (c *Collector) BattleStarted() {
	if c == nil {
		return
	}
	c.battlesStarted.Inc()
}

// BattleCompleted records a finished battle; outcome is "winner" or "tie".
func (c *Collector) BattleCompleted(tie bool) {
	if c == nil {
		return
	}
	outcome := "winner"
	if tie {
		outcome = "tie"
	}
	c.battlesCompleted.WithLabelValues(outcome).Inc()
}

func (c *Collector) Submission(result string, seconds float64) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(result).Inc()
	c.judgeLatency.Observe(seconds)
}

func (c *Collector) StaleSubmission() {
	if c == nil {
		return
	}
	c.staleSubmissions.Inc()
}
