package netident

import (
	"strings"
	"time"
)

// Built-in reference list names.
const (
	ListCloudflareV4 = "cf-v4"
	ListCloudflareV6 = "cf-v6"
	ListTor          = "tor"
)

// Published locations of the built-in reference lists.
const (
	CloudflareIPv4URL = "https://www.cloudflare.com/ips-v4"
	CloudflareIPv6URL = "https://www.cloudflare.com/ips-v6"
	TorExitListURL    = "https://check.torproject.org/torbulkexitlist"
)

const (
	CloudflareRefreshInterval = 7 * 24 * time.Hour
	TorRefreshInterval        = 12 * time.Hour
)

// ListSource describes an externally published newline separated list of
// addresses or CIDR ranges.
type ListSource struct {
	Name string
	URL  string
	TTL  time.Duration

	// Family restricts the list to one address family. The zero value
	// accepts candidates of both families.
	Family Family
}

// DefaultSources returns the Cloudflare and Tor list sources.
func DefaultSources() []ListSource {
	return []ListSource{
		{Name: ListCloudflareV4, URL: CloudflareIPv4URL, TTL: CloudflareRefreshInterval, Family: FamilyV4},
		{Name: ListCloudflareV6, URL: CloudflareIPv6URL, TTL: CloudflareRefreshInterval, Family: FamilyV6},
		{Name: ListTor, URL: TorExitListURL, TTL: TorRefreshInterval},
	}
}

func (s ListSource) accepts(f Family) bool {
	return s.Family == 0 || s.Family == f
}

// parseList splits raw list text into entries, one per non-blank line.
func parseList(raw string) []string {
	entries := make([]string, 0, strings.Count(raw, "\n")+1)
	for line := range strings.Lines(raw) {
		if entry := strings.TrimSpace(line); entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}
