package metrics

import (
	"fmt"
	"sort"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/logger"
	"go.uber.org/zap"
)

// Client is the subset of the statsd client the reporter uses
type Client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

// StatsdReporter sends application metrics to statsd
type StatsdReporter struct {
	client      Client
	rate        float64
	serverType  string
	defaultTags []string
}

// NewStatsdReporter returns an instance of statsd reporter and an error if
// something fails
func NewStatsdReporter(cfg config.MetricsConfig, serverType string, tagsMap map[string]string, clientOrNil ...Client) (*StatsdReporter, error) {
	sr := &StatsdReporter{
		rate:       cfg.StatsdRate,
		serverType: serverType,
	}
	sr.buildDefaultTags(tagsMap)

	if len(clientOrNil) > 0 && clientOrNil[0] != nil {
		sr.client = clientOrNil[0]
		return sr, nil
	}

	c, err := statsd.New(cfg.StatsdHost)
	if err != nil {
		return nil, err
	}
	c.Namespace = cfg.StatsdPrefix
	sr.client = c
	return sr, nil
}

func (s *StatsdReporter) buildDefaultTags(tagsMap map[string]string) {
	defaultTags := []string{fmt.Sprintf("serverType:%s", s.serverType)}
	for k, v := range tagsMap {
		defaultTags = append(defaultTags, fmt.Sprintf("%s:%s", k, v))
	}
	sort.Strings(defaultTags[1:])
	s.defaultTags = defaultTags
}

func (s *StatsdReporter) tags(tagsMap map[string]string) []string {
	fullTags := append([]string{}, s.defaultTags...)
	keys := make([]string, 0, len(tagsMap))
	for k := range tagsMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fullTags = append(fullTags, fmt.Sprintf("%s:%s", k, tagsMap[k]))
	}
	return fullTags
}

// ReportCount sends count reports to statsd
func (s *StatsdReporter) ReportCount(metric string, tagsMap map[string]string, count float64) error {
	err := s.client.Count(metric, int64(count), s.tags(tagsMap), s.rate)
	if err != nil {
		logger.Error("failed to report count", zap.String("metric", metric), zap.Error(err))
	}
	return err
}

// ReportGauge sends gauge reports to statsd
func (s *StatsdReporter) ReportGauge(metric string, tagsMap map[string]string, value float64) error {
	err := s.client.Gauge(metric, value, s.tags(tagsMap), s.rate)
	if err != nil {
		logger.Error("failed to report gauge", zap.String("metric", metric), zap.Error(err))
	}
	return err
}

// ReportSummary sends summary reports to statsd
func (s *StatsdReporter) ReportSummary(metric string, tagsMap map[string]string, value float64) error {
	err := s.client.TimeInMilliseconds(metric, value, s.tags(tagsMap), s.rate)
	if err != nil {
		logger.Error("failed to report summary", zap.String("metric", metric), zap.Error(err))
	}
	return err
}
