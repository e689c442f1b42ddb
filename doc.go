// Package netident determines the network identity of a client behind
// reverse proxies and Cloudflare, and checks addresses against published
// reference lists such as the Cloudflare edge ranges and the Tor exit node
// list.
//
// # Address Matching
//
// Classify tags raw strings as IPv4 or IPv6 without validating them.
// Matches, MatchesAny, and RangeMatcher test containment in CIDR specs or
// bare addresses and never fail on malformed input; they simply do not match:
//
//	netident.Matches("173.245.48.1", "173.245.48.0/20") // true
//	netident.Matches("2400:cb00:1::1", "2400:cb00::/32") // true
//
// Enumerate expands a small IPv4 block into its addresses.
//
// # Reference Lists
//
// Provider downloads newline separated lists and keeps them in a Cache, a
// flat key-value store with per-key expiry. Cloudflare lists are refreshed
// every 7 days, the Tor exit list every 12 hours:
//
//	cache := netident.NewCache(netident.NewFileStore(""))
//	provider, err := netident.NewProvider(cache)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tor, err := provider.IsTor(ctx, "198.51.100.7")
//
// Cache failures are treated as misses. Download failures return errors
// matching ErrSourceUnreachable, so callers can tell "not a member" from
// "could not determine membership".
//
// # Client Identity
//
// Resolver evaluates a fixed trust hierarchy over the peer address and the
// CF-Connecting-IP, CDN-Loop, X-Real-IP, and X-Forwarded-For headers:
//
//	resolver, err := netident.NewResolver(provider,
//	    netident.WithLogger(slog.Default()),
//	)
//
//	identity := resolver.ResolveHTTP(req)
//	fmt.Println(identity.IP, identity.Source)
//
// Unresolvable values resolve to the Loopback sentinel with
// Identity.Fallback set. Resolver.Middleware stores the identity in the
// request context.
//
// # Observability
//
// Logger mirrors slog's WarnContext, so *slog.Logger works directly.
// Metrics can be backed by Prometheus through
// github.com/abczzz13/netident/prometheus.
package netident
