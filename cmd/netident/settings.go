package main

import (
	"flag"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/abczzz13/netident"
)

const (
	envCacheDir     = "NETIDENT_CACHE_DIR"
	envRedisURL     = "NETIDENT_REDIS_URL"
	envFetchTimeout = "NETIDENT_FETCH_TIMEOUT"
	envListenAddr   = "NETIDENT_LISTEN_ADDR"
	envTrustLocal   = "NETIDENT_TRUST_LOCAL"
	envTrustProxies = "NETIDENT_TRUST_PROXIES"
	envAllowIPv6    = "NETIDENT_ALLOW_IPV6"
	envDebug        = "NETIDENT_DEBUG"

	defaultListenAddr = ":8080"
)

type settings struct {
	cacheDir     string
	redisURL     string
	fetchTimeout time.Duration
	listenAddr   string
	trustLocal   bool
	trustProxies []netip.Prefix
	allowIPv6    bool
	debug        bool
}

// parseSettings reads the environment first and lets flags override it. It
// returns the remaining command arguments.
func parseSettings(args []string, getenv func(string) string, output io.Writer) (settings, []string, error) {
	s := settings{
		cacheDir:     getenv(envCacheDir),
		redisURL:     getenv(envRedisURL),
		fetchTimeout: netident.DefaultFetchTimeout,
		listenAddr:   defaultListenAddr,
	}

	if v := getenv(envFetchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return settings{}, nil, fmt.Errorf("%s: invalid duration %q", envFetchTimeout, v)
		}
		s.fetchTimeout = d
	}
	if v := getenv(envListenAddr); v != "" {
		s.listenAddr = v
	}

	proxies := getenv(envTrustProxies)

	var err error
	if s.trustLocal, err = envBool(getenv, envTrustLocal); err != nil {
		return settings{}, nil, err
	}
	if s.allowIPv6, err = envBool(getenv, envAllowIPv6); err != nil {
		return settings{}, nil, err
	}
	if s.debug, err = envBool(getenv, envDebug); err != nil {
		return settings{}, nil, err
	}

	fs := flag.NewFlagSet("netident", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&s.cacheDir, "cache-dir", s.cacheDir, "directory for cached reference lists (default "+netident.DefaultCacheDir()+")")
	fs.StringVar(&s.redisURL, "redis-url", s.redisURL, "cache reference lists in Redis instead of files, e.g. redis://localhost:6379/0")
	fs.DurationVar(&s.fetchTimeout, "fetch-timeout", s.fetchTimeout, "timeout for a single reference list download")
	fs.StringVar(&s.listenAddr, "listen", s.listenAddr, "listen address for serve")
	fs.BoolVar(&s.trustLocal, "trust-local", s.trustLocal, "treat 127.0.0.0/24 and 10.0.0.0/24 peers as local reverse proxies")
	fs.StringVar(&proxies, "trust-proxies", proxies, "comma separated CIDRs of additional local reverse proxies")
	fs.BoolVar(&s.allowIPv6, "allow-ipv6", s.allowIPv6, "keep IPv6 client identities instead of mapping them to loopback")
	fs.BoolVar(&s.debug, "debug", s.debug, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return settings{}, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if s.fetchTimeout <= 0 {
		return settings{}, nil, fmt.Errorf("%w: fetch timeout must be > 0", errUsage)
	}
	if s.trustProxies, err = parseCIDRList(proxies); err != nil {
		return settings{}, nil, fmt.Errorf("%w: trust proxies: %v", errUsage, err)
	}

	return s, fs.Args(), nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

// parseCIDRList parses a comma separated CIDR list. Blank items are skipped.
func parseCIDRList(v string) ([]netip.Prefix, error) {
	var cidrs []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			cidrs = append(cidrs, item)
		}
	}
	if len(cidrs) == 0 {
		return nil, nil
	}

	return netident.ParseCIDRs(cidrs...)
}
