package netident

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memoryStore is an in-memory Store with failure injection.
type memoryStore struct {
	mu       sync.Mutex
	records  map[string][]byte
	readErr  error
	writeErr error

	// suffixErr fails writes of records whose name ends in failSuffix.
	failSuffix string
	suffixErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string][]byte)}
}

func (s *memoryStore) Read(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}
	data, ok := s.records[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *memoryStore) Write(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	if s.suffixErr != nil && strings.HasSuffix(name, s.failSuffix) {
		return s.suffixErr
	}
	s.records[name] = append([]byte(nil), data...)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.records, name)
	return nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStore) failReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *memoryStore) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *memoryStore) failWritesWithSuffix(suffix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSuffix = suffix
	s.suffixErr = err
}

var errDiskFull = errors.New("no space left on device")

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// listServer serves a mutable reference list body and counts requests.
type listServer struct {
	*httptest.Server

	mu     sync.Mutex
	body   string
	status int
	hits   atomic.Int64
}

func newListServer(t *testing.T, body string) *listServer {
	t.Helper()

	s := &listServer{body: body, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)

		s.mu.Lock()
		body, status := s.body, s.status
		s.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *listServer) set(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

func mustNewProvider(t *testing.T, cache *Cache, opts ...ProviderOption) *Provider {
	t.Helper()

	provider, err := NewProvider(cache, opts...)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	return provider
}

func mustNewResolver(t *testing.T, cdn CDNChecker, opts ...Option) *Resolver {
	t.Helper()

	resolver, err := NewResolver(cdn, opts...)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	return resolver
}

type capturedLogEntry struct {
	msg   string
	attrs map[string]any
}

type capturedLogger struct {
	mu      sync.Mutex
	entries []capturedLogEntry
}

func (l *capturedLogger) WarnContext(_ context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	attrs := make(map[string]any)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs[key] = args[i+1]
		}
	}
	l.entries = append(l.entries, capturedLogEntry{msg: msg, attrs: attrs})
}

func (l *capturedLogger) snapshot() []capturedLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]capturedLogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

type recordingMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
	events      map[string]int
	fetches     map[string]int
	cache       map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		resolutions: make(map[string]int),
		events:      make(map[string]int),
		fetches:     make(map[string]int),
		cache:       make(map[string]int),
	}
}

func (m *recordingMetrics) RecordResolution(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[source]++
}

func (m *recordingMetrics) RecordSecurityEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event]++
}

func (m *recordingMetrics) RecordListFetch(list, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[list+"/"+result]++
}

func (m *recordingMetrics) RecordListCache(list, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[list+"/"+result]++
}

func (m *recordingMetrics) event(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[name]
}

func (m *recordingMetrics) cacheResult(list, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[list+"/"+result]
}

func (m *recordingMetrics) fetchResult(list, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[list+"/"+result]
}
