package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	open := 3
	c := New(reg, func() int { return open })

	c.BattleCreated()
	c.BattleCreated()
	c.BattleCompleted(true)
	c.BattleCompleted(false)
	c.BattleCompleted(false)
	c.Submission(ResultPassed, 0.2)
	c.StaleSubmission()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.battlesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.battlesCompleted.WithLabelValues("tie")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.battlesCompleted.WithLabelValues("winner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues(ResultPassed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.staleSubmissions))

	families, err := reg.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, f := range families {
		if f.GetName() == "codebattle_ws_connections" {
			gauge = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 3.0, gauge)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.BattleCreated()
		c.BattleStarted()
		c.BattleCompleted(true)
		c.Submission(ResultError, 1)
		c.StaleSubmission()
	})
}
