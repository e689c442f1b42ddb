package netident

import (
	"fmt"
	"net/netip"
	"strings"
)

// Loopback is the sentinel identity used for local and unresolvable clients.
const Loopback = "127.0.0.1"

var loopbackAddr = netip.MustParseAddr(Loopback)

// Family is an IP address family.
type Family int

const (
	// Start at 1 so the zero value can mean "any family" in list sources.
	FamilyV4 Family = iota + 1
	FamilyV6
)

// String returns the canonical text representation of f.
func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "any"
	}
}

// BitLen returns the address length in bits for f, or 0 for an unknown family.
func (f Family) BitLen() int {
	switch f {
	case FamilyV4:
		return 32
	case FamilyV6:
		return 128
	default:
		return 0
	}
}

// Classify reports the family of a raw address string.
//
// More than one colon means IPv6, anything else is IPv4. The input is not
// validated, so malformed values classify permissively and fail later
// matching instead.
func Classify(address string) Family {
	if strings.Count(address, ":") > 1 {
		return FamilyV6
	}
	return FamilyV4
}

// Address is a raw address string tagged with its family.
type Address struct {
	raw    string
	family Family
}

// NewAddress classifies raw and returns the tagged value.
func NewAddress(raw string) Address {
	return Address{raw: raw, family: Classify(raw)}
}

func (a Address) String() string {
	return a.raw
}

func (a Address) Family() Family {
	return a.family
}

func (a Address) IsV4() bool {
	return a.family == FamilyV4
}

func (a Address) IsV6() bool {
	return a.family == FamilyV6
}

// Addr parses the raw string. It fails with ErrInvalidAddress when the string
// is not a literal of the classified family.
func (a Address) Addr() (netip.Addr, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(a.raw))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, a.raw, err)
	}
	if a.family == FamilyV4 && !ip.Is4() {
		return netip.Addr{}, fmt.Errorf("%w %q: not an IPv4 literal", ErrInvalidAddress, a.raw)
	}
	if a.family == FamilyV6 && (!ip.Is6() || ip.Zone() != "") {
		return netip.Addr{}, fmt.Errorf("%w %q: not an IPv6 literal", ErrInvalidAddress, a.raw)
	}
	return ip, nil
}
