package netident

const (
	securityEventSpoofedCDNHeader = "spoofed_cdn_header"
	securityEventCDNCheckFailed   = "cdn_check_failed"
	securityEventInvalidIP        = "invalid_ip"
	securityEventChainTooLong     = "chain_too_long"
)

// Reference list outcomes passed to Metrics.
const (
	ListResultSuccess = "success"
	ListResultFailure = "failure"
	ListResultHit     = "hit"
	ListResultMiss    = "miss"
	ListResultError   = "error"
)
