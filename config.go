package netident

import (
	"fmt"
	"net/netip"
)

const (
	// DefaultMaxChainLength is the maximum number of entries accepted from
	// X-Forwarded-For when falling back behind a local proxy. It bounds the
	// work done on hostile header values; typical chains rarely exceed 5-10
	// entries.
	DefaultMaxChainLength = 100

	// DefaultCDNLoopToken is the CDN-Loop header value Cloudflare sends.
	DefaultCDNLoopToken = "cloudflare"
)

// Option configures a Resolver.
//
// Construct options using package-provided option builder functions.
type Option func(*config) error

// config holds resolver configuration state.
type config struct {
	localProxyPrefixes []netip.Prefix
	localProxies       localProxySet

	cdnLoopToken     string
	allowIPv6Clients bool
	maxChainLength   int

	logger         Logger
	metrics        Metrics
	metricsFactory func() (Metrics, error)
}

var (
	// loopbackProxyPrefixes holds the sentinel itself, the default local
	// reverse proxy.
	loopbackProxyPrefixes = []netip.Prefix{
		mustParsePrefix(Loopback + "/32"),
	}

	// localProxyDefaultPrefixes are the low loopback and private host blocks
	// where same-machine or same-rack proxies usually live.
	localProxyDefaultPrefixes = []netip.Prefix{
		mustParsePrefix("127.0.0.0/24"),
		mustParsePrefix("10.0.0.0/24"),
	}
)

func mustParsePrefix(cidr string) netip.Prefix {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in CIDR %q: %v", cidr, err))
	}
	return prefix
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}

func clonePrefixes(prefixes []netip.Prefix) []netip.Prefix {
	if prefixes == nil {
		return nil
	}
	cloned := make([]netip.Prefix, len(prefixes))
	copy(cloned, prefixes)
	return cloned
}

func normalizePrefixes(prefixes []netip.Prefix) ([]netip.Prefix, error) {
	normalized := make([]netip.Prefix, 0, len(prefixes))
	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			return nil, fmt.Errorf("invalid local proxy prefix %q", prefix)
		}
		normalized = append(normalized, prefix.Masked())
	}

	return normalized, nil
}

func mergeUniquePrefixes(existing []netip.Prefix, additions ...netip.Prefix) []netip.Prefix {
	merged := make([]netip.Prefix, 0, len(existing)+len(additions))
	seen := make(map[netip.Prefix]struct{}, len(existing)+len(additions))

	for _, prefix := range append(clonePrefixes(existing), additions...) {
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		merged = append(merged, prefix)
	}

	return merged
}

func defaultConfig() *config {
	return &config{
		localProxyPrefixes: clonePrefixes(loopbackProxyPrefixes),
		cdnLoopToken:       DefaultCDNLoopToken,
		maxChainLength:     DefaultMaxChainLength,
		logger:             noopLogger{},
		metrics:            noopMetrics{},
	}
}

func applyOptions(c *config, opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}

	return nil
}

func configFromOptions(opts ...Option) (*config, error) {
	cfg := defaultConfig()

	if err := applyOptions(cfg, opts...); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.metricsFactory != nil {
		metrics, err := cfg.metricsFactory()
		if err != nil {
			return nil, fmt.Errorf("build metrics: %w", err)
		}
		if isNilInterface(metrics) {
			return nil, fmt.Errorf("metrics factory returned nil")
		}
		cfg.metrics = metrics
		cfg.metricsFactory = nil
	}

	cfg.localProxies = buildLocalProxySet(cfg.localProxyPrefixes)

	return cfg, nil
}
