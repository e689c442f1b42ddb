package netident

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrInvalidAddress = errors.New("invalid IP address")

	ErrInvalidPrefix = errors.New("invalid CIDR prefix length")

	// ErrIPv6Unsupported is returned when IPv6 matching is requested from a
	// matcher running with IPv6 disabled.
	ErrIPv6Unsupported = errors.New("IPv6 address matching is not supported")

	ErrCacheUnavailable = errors.New("cache storage unavailable")

	ErrSourceUnreachable = errors.New("reference list source unreachable")

	ErrUnknownList = errors.New("unknown reference list")

	// ErrEntryNotFound is returned by Store implementations for missing records.
	ErrEntryNotFound = errors.New("cache entry not found")
)

// CacheError reports a failed cache storage operation.
//
// It matches both ErrCacheUnavailable and the underlying storage error.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v: %v", e.Op, e.Key, ErrCacheUnavailable, e.Err)
}

func (e *CacheError) Unwrap() []error {
	return []error{ErrCacheUnavailable, e.Err}
}

// SourceError reports a failed reference list fetch.
type SourceError struct {
	List       string
	URL        string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (url=%q, status=%d)", e.List, ErrSourceUnreachable, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v (url=%q): %v", e.List, ErrSourceUnreachable, e.URL, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceUnreachable}
	}
	return []error{ErrSourceUnreachable, e.Err}
}

// Identity is the resolved network identity of a client.
type Identity struct {
	IP netip.Addr

	// Raw is the textual value the identity was resolved from, before
	// normalization.
	Raw string

	Source string

	// Fallback is set when Raw could not be validated and the identity was
	// replaced with the loopback sentinel.
	Fallback bool
}

// String returns the textual client address.
func (i Identity) String() string {
	return i.IP.String()
}

// IsLoopback reports whether the identity resolved to the loopback sentinel.
func (i Identity) IsLoopback() bool {
	return i.IP == loopbackAddr
}

// ParseCIDRs parses CIDR strings into netip prefixes, typically for
// TrustLocalProxies.
func ParseCIDRs(cidrs ...string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
