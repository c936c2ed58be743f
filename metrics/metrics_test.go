package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumagi/soul/config"
)

func TestPrometheusReporter(t *testing.T) {
	p := NewPrometheusReporter(map[string]string{"game": "soul"})

	require.NoError(t, p.ReportCount(SchedulerTasks, map[string]string{"kind": "decision", "outcome": "ok"}, 2))
	require.NoError(t, p.ReportGauge(SchedulerQueueSize, map[string]string{}, 7))
	require.NoError(t, p.ReportSummary(PersonaLatency, map[string]string{"kind": "summary", "outcome": "ok"}, 12))

	assert.Equal(t, 2.0, testutil.ToFloat64(p.countReportersMap[SchedulerTasks].WithLabelValues("decision", "ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.gaugeReportersMap[SchedulerQueueSize].WithLabelValues()))

	assert.Equal(t, ErrMetricNotKnown, p.ReportCount("nope", nil, 1))
	assert.Equal(t, ErrMetricNotKnown, p.ReportGauge("nope", nil, 1))
	assert.Equal(t, ErrMetricNotKnown, p.ReportSummary("nope", nil, 1))
}

type fakeStatsd struct {
	counts map[string]int64
	gauges map[string]float64
	timing map[string]float64
	tags   []string
	err    error
}

func newFakeStatsd() *fakeStatsd {
	return &fakeStatsd{counts: map[string]int64{}, gauges: map[string]float64{}, timing: map[string]float64{}}
}

func (f *fakeStatsd) Count(name string, value int64, tags []string, rate float64) error {
	f.counts[name] += value
	f.tags = tags
	return f.err
}

func (f *fakeStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	f.gauges[name] = value
	f.tags = tags
	return f.err
}

func (f *fakeStatsd) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	f.timing[name] = value
	f.tags = tags
	return f.err
}

func TestStatsdReporter(t *testing.T) {
	client := newFakeStatsd()
	sr, err := NewStatsdReporter(config.MetricsConfig{StatsdRate: 1}, "sim", map[string]string{"region": "eu"}, client)
	require.NoError(t, err)

	assert.NoError(t, sr.ReportCount(SchedulerTasks, map[string]string{"outcome": "timeout", "kind": "decision"}, 1))
	assert.Equal(t, int64(1), client.counts[SchedulerTasks])
	assert.Equal(t, []string{"serverType:sim", "region:eu", "kind:decision", "outcome:timeout"}, client.tags)

	assert.NoError(t, sr.ReportGauge(AgentsAlive, nil, 3))
	assert.Equal(t, 3.0, client.gauges[AgentsAlive])

	assert.NoError(t, sr.ReportSummary(TickDuration, nil, 1.5))
	assert.Equal(t, 1.5, client.timing[TickDuration])

	client.err = errors.New("udp down")
	assert.Error(t, sr.ReportGauge(AgentsAlive, nil, 4))
}

func TestReportersFanOut(t *testing.T) {
	a, b := newFakeStatsd(), newFakeStatsd()
	ra, _ := NewStatsdReporter(config.MetricsConfig{}, "sim", nil, a)
	rb, _ := NewStatsdReporter(config.MetricsConfig{}, "sim", nil, b)
	rs := Reporters{ra, rb}

	rs.Count(PathPlans, nil, 2)
	rs.Gauge(SchedulerInFlight, nil, 1)
	assert.Equal(t, int64(2), a.counts[PathPlans])
	assert.Equal(t, int64(2), b.counts[PathPlans])
	assert.Equal(t, 1.0, b.gauges[SchedulerInFlight])

	var empty Reporters
	empty.Count(PathPlans, nil, 1)
}
