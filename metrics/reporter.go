package metrics

import "time"

// Metric names reported by the simulation
const (
	SchedulerQueueSize = "scheduler_queue_size"
	SchedulerInFlight  = "scheduler_in_flight"
	SchedulerTasks     = "scheduler_tasks"
	PersonaLatency     = "persona_latency"
	PathPlans          = "path_plans"
	MemorySinkErrors   = "memory_sink_errors"
	AgentsAlive        = "agents_alive"
	TickDuration       = "tick_duration"
)

// Reporter interface
type Reporter interface {
	ReportCount(metric string, tags map[string]string, count float64) error
	ReportSummary(metric string, tags map[string]string, value float64) error
	ReportGauge(metric string, tags map[string]string, value float64) error
}

// Reporters fans one report out to every configured reporter, errors are ignored
type Reporters []Reporter

// Count to every reporter
func (rs Reporters) Count(metric string, tags map[string]string, count float64) {
	for _, r := range rs {
		_ = r.ReportCount(metric, tags, count)
	}
}

// Gauge to every reporter
func (rs Reporters) Gauge(metric string, tags map[string]string, value float64) {
	for _, r := range rs {
		_ = r.ReportGauge(metric, tags, value)
	}
}

// Summary to every reporter
func (rs Reporters) Summary(metric string, tags map[string]string, value float64) {
	for _, r := range rs {
		_ = r.ReportSummary(metric, tags, value)
	}
}

// Since reports the elapsed milliseconds since start as a summary
func (rs Reporters) Since(metric string, tags map[string]string, start time.Time) {
	if len(rs) == 0 {
		return
	}
	rs.Summary(metric, tags, float64(time.Since(start).Nanoseconds())/1e6)
}
