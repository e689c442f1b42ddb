package netident

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// RangeMatcher decides whether candidate addresses fall inside CIDR specs.
//
// The zero value matches both families. Matching never fails for malformed
// input: bad addresses and out-of-range prefixes simply do not match.
type RangeMatcher struct {
	ipv6Disabled bool
}

// MatcherOption configures a RangeMatcher.
type MatcherOption func(*RangeMatcher)

// WithoutIPv6 makes the matcher refuse IPv6 candidates with
// ErrIPv6Unsupported, for deployments where IPv6 handling is unavailable.
func WithoutIPv6() MatcherOption {
	return func(m *RangeMatcher) {
		m.ipv6Disabled = true
	}
}

// NewRangeMatcher creates a RangeMatcher.
func NewRangeMatcher(opts ...MatcherOption) RangeMatcher {
	m := RangeMatcher{}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Match reports whether candidate is contained in spec.
//
// The candidate family selects the comparison, so an IPv4 candidate never
// matches an IPv6 spec and vice versa.
func (m RangeMatcher) Match(candidate Address, spec string) (bool, error) {
	if candidate.IsV6() {
		if m.ipv6Disabled {
			return false, fmt.Errorf("%w: %q", ErrIPv6Unsupported, candidate.String())
		}
		return MatchV6(candidate.String(), spec), nil
	}

	return MatchV4(candidate.String(), spec), nil
}

// MatchAny reports whether candidate is contained in any of specs.
func (m RangeMatcher) MatchAny(candidate Address, specs []string) (bool, error) {
	for _, spec := range specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}

		ok, err := m.Match(candidate, spec)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// Matches reports whether candidate is contained in spec using a matcher with
// both families enabled.
func Matches(candidate, spec string) bool {
	ok, _ := RangeMatcher{}.Match(NewAddress(candidate), spec)
	return ok
}

// MatchesAny reports whether candidate is contained in any of specs.
func MatchesAny(candidate string, specs ...string) bool {
	ok, _ := RangeMatcher{}.MatchAny(NewAddress(candidate), specs)
	return ok
}

// MatchV4 compares the leading prefix bits of two IPv4 addresses.
//
// A bare spec is an exact /32 match. A /0 spec matches any valid IPv4
// candidate as long as the spec address itself is a valid IPv4 literal.
func MatchV4(candidate, spec string) bool {
	cidr, err := ParseCIDRSpec(spec)
	if err != nil {
		return false
	}

	bits := cidr.PrefixLen(FamilyV4)
	if bits > 32 {
		return false
	}

	network, ok := ipv4ToUint32(cidr.Addr)
	if !ok {
		return false
	}
	ip, ok := ipv4ToUint32(candidate)
	if !ok {
		return false
	}

	if bits == 0 {
		return true
	}

	mask := ^uint32(0) << (32 - bits)
	return ip&mask == network&mask
}

// MatchV6 compares two IPv6 addresses word by word.
//
// A bare spec is an exact /128 match. Prefix lengths outside 1..128 never
// match.
func MatchV6(candidate, spec string) bool {
	cidr, err := ParseCIDRSpec(spec)
	if err != nil {
		return false
	}

	bits := cidr.PrefixLen(FamilyV6)
	if bits < 1 || bits > 128 {
		return false
	}

	network, ok := ipv6Words(cidr.Addr)
	if !ok {
		return false
	}
	ip, ok := ipv6Words(candidate)
	if !ok {
		return false
	}

	for i := range (bits + 15) / 16 {
		left := min(bits-16*i, 16)
		mask := ^(uint16(0xffff) >> left)
		if network[i]&mask != ip[i]&mask {
			return false
		}
	}

	return true
}

// Enumerate lists every IPv4 address of spec in ascending order, starting at
// the network address.
//
// The result has 2^(32-prefix) entries. Callers must bound the prefix length.
func Enumerate(spec string) ([]string, error) {
	cidr, err := ParseCIDRSpec(spec)
	if err != nil {
		return nil, err
	}

	bits := cidr.PrefixLen(FamilyV4)
	if bits > 32 {
		return nil, fmt.Errorf("%w %d for IPv4 range %q", ErrInvalidPrefix, bits, spec)
	}

	network, ok := ipv4ToUint32(cidr.Addr)
	if !ok {
		return nil, fmt.Errorf("%w %q: not an IPv4 literal", ErrInvalidAddress, cidr.Addr)
	}

	if bits > 0 {
		network &= ^uint32(0) << (32 - bits)
	} else {
		network = 0
	}

	count := uint64(1) << (32 - bits)
	addrs := make([]string, 0, count)
	for i := range count {
		addrs = append(addrs, uint32ToIPv4(network+uint32(i)).String())
	}

	return addrs, nil
}

func ipv4ToUint32(s string) (uint32, bool) {
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !ip.Is4() {
		return 0, false
	}

	b := ip.As4()
	return binary.BigEndian.Uint32(b[:]), true
}

func uint32ToIPv4(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

func ipv6Words(s string) ([8]uint16, bool) {
	var words [8]uint16

	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !ip.Is6() || ip.Zone() != "" {
		return words, false
	}

	b := ip.As16()
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return words, true
}
