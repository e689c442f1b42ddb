package netident

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type configSnapshot struct {
	LocalProxyPrefixes []string
	CDNLoopToken       string
	AllowIPv6Clients   bool
	MaxChainLength     int
}

func snapshotConfig(cfg *config) configSnapshot {
	return configSnapshot{
		LocalProxyPrefixes: cidrStrings(cfg.localProxyPrefixes),
		CDNLoopToken:       cfg.cdnLoopToken,
		AllowIPv6Clients:   cfg.allowIPv6Clients,
		MaxChainLength:     cfg.maxChainLength,
	}
}

func cidrStrings(prefixes []netip.Prefix) []string {
	values := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		values[i] = prefix.String()
	}
	return values
}

func TestNewResolver_ConfigScenarios(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want configSnapshot
	}{
		{
			name: "default",
			want: configSnapshot{
				LocalProxyPrefixes: []string{"127.0.0.1/32"},
				CDNLoopToken:       DefaultCDNLoopToken,
				MaxChainLength:     DefaultMaxChainLength,
			},
		},
		{
			name: "configured options",
			opts: []Option{
				TrustLocalProxies(netip.MustParsePrefix("192.168.10.7/24")),
				WithCDNLoopToken(" edge-net "),
				AllowIPv6Clients(true),
				MaxChainLength(7),
			},
			want: configSnapshot{
				LocalProxyPrefixes: []string{"127.0.0.1/32", "192.168.10.0/24"},
				CDNLoopToken:       "edge-net",
				AllowIPv6Clients:   true,
				MaxChainLength:     7,
			},
		},
		{
			name: "defaults merged without duplicates",
			opts: []Option{
				TrustLocalProxyDefaults(),
				TrustLocalProxies(netip.MustParsePrefix("10.0.0.0/24")),
				TrustLocalProxyDefaults(),
			},
			want: configSnapshot{
				LocalProxyPrefixes: []string{"127.0.0.1/32", "127.0.0.0/24", "10.0.0.0/24"},
				CDNLoopToken:       DefaultCDNLoopToken,
				MaxChainLength:     DefaultMaxChainLength,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := mustNewResolver(t, nil, tt.opts...)
			if diff := cmp.Diff(tt.want, snapshotConfig(resolver.config)); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrustLocalProxies_CopiesInput(t *testing.T) {
	prefixes := []netip.Prefix{netip.MustParsePrefix("10.1.0.0/16")}
	opt := TrustLocalProxies(prefixes...)
	prefixes[0] = netip.MustParsePrefix("0.0.0.0/0")

	resolver := mustNewResolver(t, nil, opt)
	if resolver.config.localProxies.contains(netip.MustParseAddr("8.8.8.8")) {
		t.Fatal("option observed caller mutation after construction")
	}
}

func TestNewResolver_WithMetricsFactory_Lifecycle(t *testing.T) {
	t.Run("factory not called when configuration invalid", func(t *testing.T) {
		calls := 0

		_, err := NewResolver(nil,
			WithMetricsFactory(func() (Metrics, error) {
				calls++
				return noopMetrics{}, nil
			}),
			MaxChainLength(-1),
		)
		if err == nil {
			t.Fatal("NewResolver() error = nil, want non-nil")
		}
		if calls != 0 {
			t.Fatalf("metrics factory calls = %d, want 0", calls)
		}
	})

	t.Run("factory called once when configuration valid", func(t *testing.T) {
		calls := 0
		metrics := newRecordingMetrics()

		resolver, err := NewResolver(nil,
			WithMetricsFactory(func() (Metrics, error) {
				calls++
				return metrics, nil
			}),
		)
		if err != nil {
			t.Fatalf("NewResolver() error = %v", err)
		}
		if calls != 1 {
			t.Fatalf("metrics factory calls = %d, want 1", calls)
		}

		resolver.Resolve(RequestContext{})
		if metrics.resolutions[SourceNonNetwork] != 1 {
			t.Fatal("expected factory metrics to be used")
		}
	})

	t.Run("WithMetrics after factory disables factory", func(t *testing.T) {
		calls := 0

		_, err := NewResolver(nil,
			WithMetricsFactory(func() (Metrics, error) {
				calls++
				return noopMetrics{}, nil
			}),
			WithMetrics(noopMetrics{}),
		)
		if err != nil {
			t.Fatalf("NewResolver() error = %v", err)
		}
		if calls != 0 {
			t.Fatalf("metrics factory calls = %d, want 0", calls)
		}
	})

	t.Run("factory error fails construction", func(t *testing.T) {
		errRegistry := errors.New("registry closed")

		_, err := NewResolver(nil, WithMetricsFactory(func() (Metrics, error) {
			return nil, errRegistry
		}))
		if !errors.Is(err, errRegistry) {
			t.Fatalf("NewResolver() error = %v, want %v", err, errRegistry)
		}
	})

	t.Run("nil factory rejected", func(t *testing.T) {
		_, err := NewResolver(nil, WithMetricsFactory(nil))
		if err == nil || !strings.Contains(err.Error(), "metrics factory cannot be nil") {
			t.Fatalf("NewResolver() error = %v", err)
		}
	})
}
