// Package prometheus provides a Prometheus adapter for
// github.com/abczzz13/netident.
//
// PrometheusMetrics implements netident.Metrics and can be shared by a
// Resolver and a Provider. WithMetrics and WithRegisterer install it on a
// Resolver using either the default registerer or a caller-provided one.
package prometheus
