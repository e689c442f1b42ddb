package prometheus

import (
	"errors"
	"fmt"

	"github.com/abczzz13/netident"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a Prometheus-backed implementation of netident.Metrics.
type PrometheusMetrics struct {
	resolutions    *prom.CounterVec
	securityEvents *prom.CounterVec
	listFetches    *prom.CounterVec
	listCache      *prom.CounterVec
}

var _ netident.Metrics = (*PrometheusMetrics)(nil)

// WithMetrics returns a netident option that installs Prometheus-backed
// metrics using prom.DefaultRegisterer.
func WithMetrics() netident.Option {
	return withMetricsFactory(New)
}

// WithRegisterer returns a netident option that installs Prometheus-backed
// metrics using the provided registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used.
func WithRegisterer(registerer prom.Registerer) netident.Option {
	return withMetricsFactory(func() (*PrometheusMetrics, error) {
		return NewWithRegisterer(registerer)
	})
}

func withMetricsFactory(factory func() (*PrometheusMetrics, error)) netident.Option {
	return netident.WithMetricsFactory(func() (netident.Metrics, error) {
		return factory()
	})
}

// New creates PrometheusMetrics and registers its collectors on
// prom.DefaultRegisterer.
func New() (*PrometheusMetrics, error) {
	return NewWithRegisterer(prom.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics and registers its collectors on
// the given registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used. If the metrics are
// already registered, existing compatible collectors are reused.
func NewWithRegisterer(registerer prom.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}

	collectors := []struct {
		target **prom.CounterVec
		opts   prom.CounterOpts
		labels []string
	}{
		{
			opts: prom.CounterOpts{
				Name: "netident_resolutions_total",
				Help: "Resolved client identities by source (cf_connecting_ip_direct, cf_connecting_ip_proxied, x_real_ip, x_forwarded_for, remote_addr, non_network).",
			},
			labels: []string{"source"},
		},
		{
			opts: prom.CounterOpts{
				Name: "netident_security_events_total",
				Help: "Security-related events during identity resolution, labeled by event.",
			},
			labels: []string{"event"},
		},
		{
			opts: prom.CounterOpts{
				Name: "netident_list_fetches_total",
				Help: "Reference list downloads by list and result (success, failure).",
			},
			labels: []string{"list", "result"},
		},
		{
			opts: prom.CounterOpts{
				Name: "netident_list_cache_total",
				Help: "Reference list cache lookups by list and result (hit, miss, error).",
			},
			labels: []string{"list", "result"},
		},
	}

	m := &PrometheusMetrics{}
	collectors[0].target = &m.resolutions
	collectors[1].target = &m.securityEvents
	collectors[2].target = &m.listFetches
	collectors[3].target = &m.listCache

	for _, c := range collectors {
		vec, err := registerCounterVec(registerer, prom.NewCounterVec(c.opts, c.labels), c.opts.Name)
		if err != nil {
			return nil, err
		}
		*c.target = vec
	}

	return m, nil
}

func registerCounterVec(registerer prom.Registerer, collector *prom.CounterVec, metricName string) (*prom.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prom.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prom.CounterVec)
			if ok {
				return existing, nil
			}
			return nil, fmt.Errorf("metric %q already registered with incompatible collector type %T", metricName, alreadyRegistered.ExistingCollector)
		}

		return nil, fmt.Errorf("register metric %q: %w", metricName, err)
	}

	return collector, nil
}

// RecordResolution increments netident_resolutions_total for source.
func (m *PrometheusMetrics) RecordResolution(source string) {
	m.resolutions.WithLabelValues(source).Inc()
}

// RecordSecurityEvent increments netident_security_events_total for event.
func (m *PrometheusMetrics) RecordSecurityEvent(event string) {
	m.securityEvents.WithLabelValues(event).Inc()
}

// RecordListFetch increments netident_list_fetches_total.
func (m *PrometheusMetrics) RecordListFetch(list, result string) {
	m.listFetches.WithLabelValues(list, result).Inc()
}

// RecordListCache increments netident_list_cache_total.
func (m *PrometheusMetrics) RecordListCache(list, result string) {
	m.listCache.WithLabelValues(list, result).Inc()
}
