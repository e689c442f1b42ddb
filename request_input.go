package netident

import (
	"context"
	"net/http"
	"strings"
)

// Header names consulted by Resolver.
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderCDNLoop        = "CDN-Loop"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
)

// HeaderValues provides access to request header values by name.
//
// Implementations should return one slice entry per received header line.
// Header names are requested in canonical MIME format (for example
// "X-Forwarded-For").
//
// net/http's http.Header satisfies this interface directly.
type HeaderValues interface {
	Values(name string) []string
}

// HeaderValuesFunc adapts a function to the HeaderValues interface.
type HeaderValuesFunc func(name string) []string

// Values implements HeaderValues.
func (f HeaderValuesFunc) Values(name string) []string {
	if f == nil {
		return nil
	}

	return f(name)
}

// RequestContext is every signal Resolver consults for one inbound request.
//
// Context defaults to context.Background() when nil. Empty strings mean the
// signal is absent.
type RequestContext struct {
	Context context.Context

	// PeerAddr is the directly connected peer, with or without a port.
	PeerAddr string

	CFConnectingIP string
	CDNLoop        string
	XRealIP        string

	// XForwardedFor holds one entry per received header line.
	XForwardedFor []string
}

// RequestContextFromHTTP collects the resolver inputs from r.
func RequestContextFromHTTP(r *http.Request) RequestContext {
	if r == nil {
		return RequestContext{}
	}

	return RequestContextFrom(r.Context(), r.RemoteAddr, r.Header)
}

// RequestContextFrom collects the resolver inputs from framework-agnostic
// request data.
//
// Repeated single-value headers are joined with ", " so that they fail
// validation instead of silently picking one line.
func RequestContextFrom(ctx context.Context, peerAddr string, headers HeaderValues) RequestContext {
	rc := RequestContext{
		Context:  ctx,
		PeerAddr: hostOnly(peerAddr),
	}

	if isNilInterface(headers) {
		return rc
	}

	rc.CFConnectingIP = joinHeader(headers.Values(HeaderCFConnectingIP))
	rc.CDNLoop = joinHeader(headers.Values(HeaderCDNLoop))
	rc.XRealIP = joinHeader(headers.Values(HeaderXRealIP))
	if values := headers.Values(HeaderXForwardedFor); len(values) > 0 {
		rc.XForwardedFor = cloneStrings(values)
	}

	return rc
}

func (rc RequestContext) context() context.Context {
	if rc.Context == nil {
		return context.Background()
	}

	return rc.Context
}

func joinHeader(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return strings.TrimSpace(values[0])
	}

	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		trimmed = append(trimmed, strings.TrimSpace(v))
	}
	return strings.Join(trimmed, ", ")
}
