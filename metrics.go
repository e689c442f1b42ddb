package netident

// Metrics records resolution outcomes, security events, and reference list
// activity.
//
// Implementations should be safe for concurrent use.
type Metrics interface {
	// RecordResolution is called once per resolved identity with the source
	// that produced it.
	RecordResolution(source string)
	// RecordSecurityEvent is called when the resolver observes a
	// security-relevant condition.
	RecordSecurityEvent(event string)
	// RecordListFetch is called after every remote fetch of a reference list
	// with ListResultSuccess or ListResultFailure.
	RecordListFetch(list, result string)
	// RecordListCache is called after every cache lookup of a reference list
	// with ListResultHit, ListResultMiss, or ListResultError.
	RecordListCache(list, result string)
}

// noopMetrics is the default Metrics implementation when metrics are not
// explicitly configured.
type noopMetrics struct{}

func (noopMetrics) RecordResolution(string) {}

func (noopMetrics) RecordSecurityEvent(string) {}

func (noopMetrics) RecordListFetch(string, string) {}

func (noopMetrics) RecordListCache(string, string) {}
