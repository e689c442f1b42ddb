package netident

import (
	"fmt"
	"net/netip"
	"strings"
)

// TrustLocalProxies adds prefixes whose peers are treated as local reverse
// proxies, in addition to the loopback sentinel.
func TrustLocalProxies(prefixes ...netip.Prefix) Option {
	prefixes = clonePrefixes(prefixes)

	return func(c *config) error {
		normalized, err := normalizePrefixes(prefixes)
		if err != nil {
			return err
		}

		c.localProxyPrefixes = mergeUniquePrefixes(c.localProxyPrefixes, normalized...)
		return nil
	}
}

// TrustLocalProxyDefaults trusts 127.0.0.0/24 and 10.0.0.0/24 as local
// reverse proxies.
func TrustLocalProxyDefaults() Option {
	return func(c *config) error {
		c.localProxyPrefixes = mergeUniquePrefixes(c.localProxyPrefixes, localProxyDefaultPrefixes...)
		return nil
	}
}

// WithCDNLoopToken sets the CDN-Loop value required before a CF-Connecting-IP
// header from a non-matching peer is considered.
func WithCDNLoopToken(token string) Option {
	return func(c *config) error {
		c.cdnLoopToken = strings.TrimSpace(token)
		return nil
	}
}

// AllowIPv6Clients controls whether IPv6 identities are kept. When disabled,
// the default, anything that is not an IPv4 literal resolves to Loopback.
func AllowIPv6Clients(allow bool) Option {
	return func(c *config) error {
		c.allowIPv6Clients = allow
		return nil
	}
}

// MaxChainLength sets the maximum number of X-Forwarded-For entries accepted.
func MaxChainLength(max int) Option {
	return func(c *config) error {
		c.maxChainLength = max
		return nil
	}
}

// WithLogger sets the logger implementation used for warning events.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets a concrete metrics implementation.
//
// It replaces any factory set earlier with WithMetricsFactory.
func WithMetrics(metrics Metrics) Option {
	return func(c *config) error {
		if isNilInterface(metrics) {
			return fmt.Errorf("metrics cannot be nil")
		}
		c.metrics = metrics
		c.metricsFactory = nil
		return nil
	}
}

// WithMetricsFactory builds the metrics implementation once the rest of the
// configuration is valid. A factory error fails resolver construction.
func WithMetricsFactory(factory func() (Metrics, error)) Option {
	return func(c *config) error {
		if factory == nil {
			return fmt.Errorf("metrics factory cannot be nil")
		}
		c.metricsFactory = factory
		return nil
	}
}
