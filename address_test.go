package netident

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Family
	}{
		{name: "IPv4", address: "203.0.113.5", want: FamilyV4},
		{name: "IPv4 with port", address: "203.0.113.5:8080", want: FamilyV4},
		{name: "IPv6 full", address: "2001:db8:0:0:0:0:0:1", want: FamilyV6},
		{name: "IPv6 compressed", address: "2400:cb00::1", want: FamilyV6},
		{name: "IPv6 loopback", address: "::1", want: FamilyV6},
		{name: "empty", address: "", want: FamilyV4},
		{name: "garbage stays permissive", address: "not-an-ip", want: FamilyV4},
		{name: "two colons of garbage", address: "a:b:c", want: FamilyV6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.address); got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.address, got, tt.want)
			}
		})
	}
}

func TestFamily_String(t *testing.T) {
	if got := FamilyV4.String(); got != "ipv4" {
		t.Fatalf("FamilyV4.String() = %q", got)
	}
	if got := FamilyV6.String(); got != "ipv6" {
		t.Fatalf("FamilyV6.String() = %q", got)
	}
	if got := Family(0).String(); got != "any" {
		t.Fatalf("Family(0).String() = %q", got)
	}
}

func TestAddress_Addr(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "IPv4", raw: "198.51.100.7", want: "198.51.100.7"},
		{name: "IPv4 surrounding space", raw: " 198.51.100.7 ", want: "198.51.100.7"},
		{name: "IPv6", raw: "2400:cb00:1::1", want: "2400:cb00:1::1"},
		{name: "IPv4 leading zeros", raw: "010.0.0.1", wantErr: true},
		{name: "garbage", raw: "localhost", wantErr: true},
		{name: "IPv6 zone", raw: "fe80::1%eth0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, err := NewAddress(tt.raw).Addr()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("Addr() error = %v, want ErrInvalidAddress", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Addr() error = %v", err)
			}
			if got := ip.String(); got != tt.want {
				t.Fatalf("Addr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewAddress_FamilyFixedAtConstruction(t *testing.T) {
	addr := NewAddress("2400:cb00::1")
	if !addr.IsV6() || addr.IsV4() {
		t.Fatalf("NewAddress(%q) family = %s", addr, addr.Family())
	}
	if addr.String() != "2400:cb00::1" {
		t.Fatalf("String() = %q, want raw input", addr.String())
	}
}
