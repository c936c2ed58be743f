package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tutumagi/soul/logger"
	"go.uber.org/zap"
)

var (
	prometheusReporter *PrometheusReporter
	once               sync.Once
)

// PrometheusReporter reports metrics to prometheus
type PrometheusReporter struct {
	registry            *prometheus.Registry
	countReportersMap   map[string]*prometheus.CounterVec
	summaryReportersMap map[string]*prometheus.SummaryVec
	gaugeReportersMap   map[string]*prometheus.GaugeVec
}

func (p *PrometheusReporter) registerMetrics(constLabels map[string]string) {
	constLabels = copyLabels(constLabels)

	p.countReportersMap[SchedulerTasks] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "soul",
			Subsystem:   "scheduler",
			Name:        "tasks_total",
			Help:        "the number of persona tasks by kind and outcome",
			ConstLabels: constLabels,
		},
		[]string{"kind", "outcome"},
	)

	p.countReportersMap[PathPlans] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "soul",
			Subsystem:   "pathfind",
			Name:        "plans_total",
			Help:        "the number of A* plans by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	p.countReportersMap[MemorySinkErrors] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "soul",
			Subsystem:   "memory",
			Name:        "sink_errors_total",
			Help:        "the number of observation records the durable sink failed to write",
			ConstLabels: constLabels,
		},
		[]string{"sink"},
	)

	p.summaryReportersMap[PersonaLatency] = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:   "soul",
			Subsystem:   "persona",
			Name:        "latency_ms",
			Help:        "persona request latency in milliseconds",
			Objectives:  map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			ConstLabels: constLabels,
		},
		[]string{"kind", "outcome"},
	)

	p.summaryReportersMap[TickDuration] = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:   "soul",
			Subsystem:   "world",
			Name:        "tick_ms",
			Help:        "duration of one simulation tick in milliseconds",
			Objectives:  map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			ConstLabels: constLabels,
		},
		[]string{},
	)

	p.gaugeReportersMap[SchedulerQueueSize] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "soul",
			Subsystem:   "scheduler",
			Name:        "queue_size",
			Help:        "persona tasks waiting for admission",
			ConstLabels: constLabels,
		},
		[]string{},
	)

	p.gaugeReportersMap[SchedulerInFlight] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "soul",
			Subsystem:   "scheduler",
			Name:        "in_flight",
			Help:        "persona tasks currently running",
			ConstLabels: constLabels,
		},
		[]string{},
	)

	p.gaugeReportersMap[AgentsAlive] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "soul",
			Subsystem:   "world",
			Name:        "agents_alive",
			Help:        "agents currently simulated",
			ConstLabels: constLabels,
		},
		[]string{},
	)

	for _, c := range p.countReportersMap {
		p.registry.MustRegister(c)
	}
	for _, c := range p.summaryReportersMap {
		p.registry.MustRegister(c)
	}
	for _, c := range p.gaugeReportersMap {
		p.registry.MustRegister(c)
	}
}

// NewPrometheusReporter builds a reporter on its own registry
func NewPrometheusReporter(constLabels map[string]string) *PrometheusReporter {
	p := &PrometheusReporter{
		registry:            prometheus.NewRegistry(),
		countReportersMap:   make(map[string]*prometheus.CounterVec),
		summaryReportersMap: make(map[string]*prometheus.SummaryVec),
		gaugeReportersMap:   make(map[string]*prometheus.GaugeVec),
	}
	p.registerMetrics(constLabels)
	return p
}

// GetPrometheusReporter gets the process wide prometheus reporter and serves
// it on port once
func GetPrometheusReporter(port int, constLabels map[string]string) *PrometheusReporter {
	once.Do(func() {
		prometheusReporter = NewPrometheusReporter(constLabels)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", prometheusReporter.Handler())
			if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
				logger.Error("prometheus reporter stopped", zap.Error(err))
			}
		}()
	})
	return prometheusReporter
}

// Handler serves the reporter's registry
func (p *PrometheusReporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry the metrics are registered on
func (p *PrometheusReporter) Registry() *prometheus.Registry {
	return p.registry
}

// ReportSummary reports a summary metric
func (p *PrometheusReporter) ReportSummary(metric string, labels map[string]string, value float64) error {
	sum := p.summaryReportersMap[metric]
	if sum != nil {
		sum.With(labels).Observe(value)
		return nil
	}
	return ErrMetricNotKnown
}

// ReportCount reports a counter metric
func (p *PrometheusReporter) ReportCount(metric string, labels map[string]string, count float64) error {
	cnt := p.countReportersMap[metric]
	if cnt != nil {
		cnt.With(labels).Add(count)
		return nil
	}
	return ErrMetricNotKnown
}

// ReportGauge reports a gauge metric
func (p *PrometheusReporter) ReportGauge(metric string, labels map[string]string, value float64) error {
	g := p.gaugeReportersMap[metric]
	if g != nil {
		g.With(labels).Set(value)
		return nil
	}
	return ErrMetricNotKnown
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
