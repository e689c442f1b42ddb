package netident

import (
	"fmt"
	"strconv"
	"strings"
)

// CIDRSpec is an address with an optional prefix length.
//
// Bits is -1 for a bare address, which matches exactly (/32 or /128).
// Family-specific bounds are checked when matching, never when parsing, so an
// out-of-range prefix simply never matches.
type CIDRSpec struct {
	Addr string
	Bits int
}

// ParseCIDRSpec parses "address" or "address/prefix".
func ParseCIDRSpec(s string) (CIDRSpec, error) {
	s = strings.TrimSpace(s)
	address, prefix, hasPrefix := strings.Cut(s, "/")
	if !hasPrefix {
		return CIDRSpec{Addr: address, Bits: -1}, nil
	}

	bits, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return CIDRSpec{}, fmt.Errorf("%w %q in %q", ErrInvalidPrefix, prefix, s)
	}
	if bits < 0 {
		return CIDRSpec{}, fmt.Errorf("%w %d in %q", ErrInvalidPrefix, bits, s)
	}

	return CIDRSpec{Addr: strings.TrimSpace(address), Bits: bits}, nil
}

// IsBare reports whether the spec carries no prefix length.
func (s CIDRSpec) IsBare() bool {
	return s.Bits < 0
}

// PrefixLen returns the effective prefix length for family f.
func (s CIDRSpec) PrefixLen(f Family) int {
	if s.IsBare() {
		return f.BitLen()
	}
	return s.Bits
}

func (s CIDRSpec) String() string {
	if s.IsBare() {
		return s.Addr
	}
	return s.Addr + "/" + strconv.Itoa(s.Bits)
}
