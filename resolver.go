package netident

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// Identity sources reported in Identity.Source and to Metrics.
const (
	// SourceNonNetwork marks requests without any network signal.
	SourceNonNetwork = "non_network"
	// SourceCDNDirect marks a CF-Connecting-IP equal to the peer address.
	SourceCDNDirect = "cf_connecting_ip_direct"
	// SourceCDNProxied marks a CF-Connecting-IP accepted because the peer is
	// a published Cloudflare address and CDN-Loop matched.
	SourceCDNProxied = "cf_connecting_ip_proxied"
	// SourceXRealIP marks the X-Real-IP header of a local proxy.
	SourceXRealIP = "x_real_ip"
	// SourceXForwardedFor marks the rightmost X-Forwarded-For entry of a local
	// proxy that sent no X-Real-IP.
	SourceXForwardedFor = "x_forwarded_for"
	// SourceRemoteAddr marks the directly connected peer.
	SourceRemoteAddr = "remote_addr"
)

// loopbackAliases resolve to Loopback without being treated as invalid.
var loopbackAliases = map[string]struct{}{
	"::1":       {},
	"0.0.0.0":   {},
	"localhost": {},
}

// CDNChecker decides whether an address belongs to the CDN edge network.
//
// *Provider satisfies it.
type CDNChecker interface {
	IsCloudflare(ctx context.Context, ip string) (bool, error)
}

// Resolver determines the client identity of inbound requests.
//
// Resolver instances are safe for concurrent use. They hold no per-request
// state; use ForRequest to memoize the identity of one request.
type Resolver struct {
	config *config
	cdn    CDNChecker
}

// NewResolver creates a Resolver. A nil cdn never vouches for a proxied
// CF-Connecting-IP, leaving only direct edge connections trusted.
func NewResolver(cdn CDNChecker, opts ...Option) (*Resolver, error) {
	cfg, err := configFromOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if isNilInterface(cdn) {
		cdn = nil
	}

	return &Resolver{config: cfg, cdn: cdn}, nil
}

// Resolve evaluates the trust hierarchy for one request:
//
//  1. Without a CF-Connecting-IP header and a peer address the identity is
//     Loopback.
//  2. A peer that is a local proxy is replaced by its X-Real-IP header.
//  3. A CF-Connecting-IP equal to the peer is a direct edge connection.
//  4. A CF-Connecting-IP is also trusted when CDN-Loop carries the CDN token
//     and the peer is a published CDN address.
//  5. Otherwise the peer stands. A local proxy without X-Real-IP falls back
//     to the rightmost X-Forwarded-For entry.
//  6. Loopback aliases and values that are not valid client literals
//     resolve to Loopback.
func (r *Resolver) Resolve(rc RequestContext) Identity {
	ctx := rc.context()

	peer := hostOnly(rc.PeerAddr)
	cdnIP := strings.TrimSpace(rc.CFConnectingIP)
	if cdnIP == "" && peer == "" {
		return r.identity(ctx, rc, Loopback, SourceNonNetwork)
	}

	localProxy := r.config.localProxies.contains(parseIP(peer))
	source := SourceRemoteAddr
	if localProxy {
		if realIP := hostOnly(rc.XRealIP); realIP != "" {
			peer = realIP
			source = SourceXRealIP
		}
	}

	if cdnIP != "" {
		if cdnIP == peer {
			return r.identity(ctx, rc, cdnIP, SourceCDNDirect)
		}
		if r.proxiedByCDN(ctx, rc, peer) {
			return r.identity(ctx, rc, cdnIP, SourceCDNProxied)
		}

		r.config.metrics.RecordSecurityEvent(securityEventSpoofedCDNHeader)
		r.config.logger.WarnContext(ctx, "ignoring CF-Connecting-IP from peer outside the CDN",
			"event", securityEventSpoofedCDNHeader,
			"peer_addr", peer,
			"cf_connecting_ip", cdnIP,
			"cdn_loop", rc.CDNLoop,
		)
	}

	if localProxy && source == SourceRemoteAddr {
		if forwarded := r.forwardedForClient(ctx, rc); forwarded != "" {
			return r.identity(ctx, rc, forwarded, SourceXForwardedFor)
		}
	}

	return r.identity(ctx, rc, peer, source)
}

// proxiedByCDN fails closed when membership cannot be determined.
func (r *Resolver) proxiedByCDN(ctx context.Context, rc RequestContext, peer string) bool {
	if strings.TrimSpace(rc.CDNLoop) != r.config.cdnLoopToken || r.cdn == nil {
		return false
	}

	ip := parseIP(peer)
	if !ip.IsValid() || ip.IsLoopback() {
		return false
	}

	ok, err := r.cdn.IsCloudflare(ctx, peer)
	if err != nil {
		r.config.metrics.RecordSecurityEvent(securityEventCDNCheckFailed)
		r.config.logger.WarnContext(ctx, "could not verify CDN peer address",
			"event", securityEventCDNCheckFailed,
			"peer_addr", peer,
			"error", err,
		)
		return false
	}

	return ok
}

func (r *Resolver) identity(ctx context.Context, rc RequestContext, raw, source string) Identity {
	r.config.metrics.RecordResolution(source)

	if _, ok := loopbackAliases[raw]; ok {
		return Identity{IP: loopbackAddr, Raw: raw, Source: source}
	}

	if ip, ok := r.clientAddr(raw); ok {
		return Identity{IP: ip, Raw: raw, Source: source}
	}

	r.config.metrics.RecordSecurityEvent(securityEventInvalidIP)
	r.config.logger.WarnContext(ctx, "unresolvable client address, using loopback",
		"event", securityEventInvalidIP,
		"source", source,
		"value", raw,
		"peer_addr", rc.PeerAddr,
	)

	return Identity{IP: loopbackAddr, Raw: raw, Source: source, Fallback: true}
}

func (r *Resolver) clientAddr(raw string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(raw)
	if err != nil || ip.Zone() != "" {
		return netip.Addr{}, false
	}

	if ip.Is4() {
		return ip, true
	}

	if r.config.allowIPv6Clients {
		return normalizeIP(ip), true
	}

	return netip.Addr{}, false
}

// ClientRequest memoizes the identity of a single request.
type ClientRequest struct {
	resolver *Resolver
	input    RequestContext

	once     sync.Once
	identity Identity
}

// ForRequest binds rc to r. The returned value resolves at most once.
func (r *Resolver) ForRequest(rc RequestContext) *ClientRequest {
	return &ClientRequest{resolver: r, input: rc}
}

// Identity resolves the client identity on first use and returns the cached
// result afterwards.
func (c *ClientRequest) Identity() Identity {
	c.once.Do(func() {
		c.identity = c.resolver.Resolve(c.input)
	})
	return c.identity
}

// Input returns the request signals the identity is resolved from.
func (c *ClientRequest) Input() RequestContext {
	return c.input
}
