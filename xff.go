package netident

import (
	"context"
	"strings"
)

// typicalChainCapacity is the initial capacity used when parsing proxy chains.
const typicalChainCapacity = 8

// parseForwardedFor flattens X-Forwarded-For header lines into chain entries.
// It reports false when the chain exceeds maxChainLength.
func parseForwardedFor(values []string, maxChainLength int) ([]string, bool) {
	if len(values) == 0 {
		return nil, true
	}

	parts := make([]string, 0, typicalChainCapacity)
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if len(parts) >= maxChainLength {
				return nil, false
			}
			parts = append(parts, trimmed)
		}
	}

	return parts, true
}

// forwardedForClient returns the rightmost X-Forwarded-For entry, the address
// the local proxy itself observed.
func (r *Resolver) forwardedForClient(ctx context.Context, rc RequestContext) string {
	parts, ok := parseForwardedFor(rc.XForwardedFor, r.config.maxChainLength)
	if !ok {
		r.config.metrics.RecordSecurityEvent(securityEventChainTooLong)
		r.config.logger.WarnContext(ctx, "X-Forwarded-For chain too long",
			"event", securityEventChainTooLong,
			"peer_addr", rc.PeerAddr,
			"max_length", r.config.maxChainLength,
		)
		return ""
	}
	if len(parts) == 0 {
		return ""
	}

	return hostOnly(parts[len(parts)-1])
}
