package netident

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFetchTimeout bounds a single reference list download.
	DefaultFetchTimeout = 10 * time.Second

	maxListBytes = 10 << 20 // 10 MiB safety cap
)

var (
	errListTooLarge = errors.New("response exceeds size limit")
	errEmptyList    = errors.New("response contains no entries")
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig) error

type providerConfig struct {
	client       Doer
	fetchTimeout time.Duration
	sources      map[string]ListSource
	matcher      RangeMatcher
	logger       Logger
	metrics      Metrics
}

// WithHTTPClient sets the client used to download reference lists.
func WithHTTPClient(client Doer) ProviderOption {
	return func(c *providerConfig) error {
		c.client = client
		return nil
	}
}

// WithFetchTimeout bounds each reference list download.
func WithFetchTimeout(timeout time.Duration) ProviderOption {
	return func(c *providerConfig) error {
		c.fetchTimeout = timeout
		return nil
	}
}

// WithSources adds list sources, replacing built-ins with the same name.
func WithSources(sources ...ListSource) ProviderOption {
	sources = slices.Clone(sources)

	return func(c *providerConfig) error {
		for _, src := range sources {
			c.sources[src.Name] = src
		}
		return nil
	}
}

// WithMatcher sets the RangeMatcher used for membership checks.
func WithMatcher(matcher RangeMatcher) ProviderOption {
	return func(c *providerConfig) error {
		c.matcher = matcher
		return nil
	}
}

// WithProviderLogger sets the logger used for cache and fetch warnings.
func WithProviderLogger(logger Logger) ProviderOption {
	return func(c *providerConfig) error {
		c.logger = logger
		return nil
	}
}

// WithProviderMetrics sets the metrics implementation for list activity.
func WithProviderMetrics(metrics Metrics) ProviderOption {
	return func(c *providerConfig) error {
		c.metrics = metrics
		return nil
	}
}

func defaultProviderConfig() *providerConfig {
	sources := make(map[string]ListSource)
	for _, src := range DefaultSources() {
		sources[src.Name] = src
	}

	return &providerConfig{
		client:       http.DefaultClient,
		fetchTimeout: DefaultFetchTimeout,
		sources:      sources,
		logger:       noopLogger{},
		metrics:      noopMetrics{},
	}
}

func (c *providerConfig) validate() error {
	if isNilInterface(c.client) {
		return fmt.Errorf("http client cannot be nil")
	}
	if c.fetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be > 0, got %s", c.fetchTimeout)
	}
	for name, src := range c.sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("list source names cannot be empty")
		}
		if src.URL == "" {
			return fmt.Errorf("list source %q has no URL", name)
		}
		if src.TTL <= 0 {
			return fmt.Errorf("list source %q TTL must be > 0, got %s", name, src.TTL)
		}
		if src.Family != 0 && src.Family != FamilyV4 && src.Family != FamilyV6 {
			return fmt.Errorf("list source %q has invalid family %d", name, src.Family)
		}
	}
	if isNilInterface(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilInterface(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

// Provider serves reference lists from a Cache, downloading them again when
// the cached copy is missing or expired.
//
// Provider instances are safe for concurrent use. Concurrent misses for the
// same list share one download.
type Provider struct {
	cache  *Cache
	config *providerConfig
	group  singleflight.Group
}

// NewProvider creates a Provider backed by cache. A nil cache selects a
// FileStore backed Cache in DefaultCacheDir.
func NewProvider(cache *Cache, opts ...ProviderOption) (*Provider, error) {
	cfg := defaultProviderConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cache == nil {
		cache = NewCache(nil)
	}

	return &Provider{cache: cache, config: cfg}, nil
}

// Sources returns the configured list sources ordered by name.
func (p *Provider) Sources() []ListSource {
	sources := make([]ListSource, 0, len(p.config.sources))
	for _, src := range p.config.sources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources
}

func (p *Provider) source(name string) (ListSource, error) {
	src, ok := p.config.sources[name]
	if !ok {
		return ListSource{}, fmt.Errorf("%w %q", ErrUnknownList, name)
	}
	return src, nil
}

// GetList returns the entries of the named list, one per line.
//
// A cache miss, expiry, or cache failure triggers a download. A failed
// download returns a *SourceError and leaves the cache untouched.
func (p *Provider) GetList(ctx context.Context, name string) ([]string, error) {
	src, err := p.source(name)
	if err != nil {
		return nil, err
	}

	raw, found, err := p.cache.Load(ctx, src.Name)
	switch {
	case err != nil:
		p.config.metrics.RecordListCache(src.Name, ListResultError)
		p.config.logger.WarnContext(ctx, "reference list cache unavailable, fetching from source",
			"list", src.Name,
			"error", err,
		)
	case found:
		p.config.metrics.RecordListCache(src.Name, ListResultHit)
		return parseList(raw), nil
	default:
		p.config.metrics.RecordListCache(src.Name, ListResultMiss)
	}

	return p.fetchShared(ctx, src)
}

// Refresh downloads the named list regardless of the cached copy and
// overwrites the cache on success.
func (p *Provider) Refresh(ctx context.Context, name string) ([]string, error) {
	src, err := p.source(name)
	if err != nil {
		return nil, err
	}

	return p.fetchShared(ctx, src)
}

// Invalidate removes the cached copy of the named list.
func (p *Provider) Invalidate(ctx context.Context, name string) error {
	src, err := p.source(name)
	if err != nil {
		return err
	}

	return p.cache.Delete(ctx, src.Name)
}

// IsMember reports whether ip is contained in any of the named lists.
//
// Lists restricted to the other address family are skipped without being
// loaded.
func (p *Provider) IsMember(ctx context.Context, ip string, names ...string) (bool, error) {
	candidate := NewAddress(ip)
	if candidate.IsV6() && p.config.matcher.ipv6Disabled {
		return false, fmt.Errorf("%w: %q", ErrIPv6Unsupported, ip)
	}

	for _, name := range names {
		src, err := p.source(name)
		if err != nil {
			return false, err
		}
		if !src.accepts(candidate.Family()) {
			continue
		}

		entries, err := p.GetList(ctx, src.Name)
		if err != nil {
			return false, err
		}

		ok, err := p.config.matcher.MatchAny(candidate, entries)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// IsCloudflare reports whether ip belongs to the published Cloudflare ranges.
func (p *Provider) IsCloudflare(ctx context.Context, ip string) (bool, error) {
	return p.IsMember(ctx, ip, ListCloudflareV4, ListCloudflareV6)
}

// IsTor reports whether ip is a listed Tor exit node.
func (p *Provider) IsTor(ctx context.Context, ip string) (bool, error) {
	return p.IsMember(ctx, ip, ListTor)
}

// fetchShared runs one fetch per list for all concurrent callers. The fetch
// is detached from the cancellation of whichever caller started it and is
// bounded by the fetch timeout alone.
func (p *Provider) fetchShared(ctx context.Context, src ListSource) ([]string, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(src.Name, func() (interface{}, error) {
		return p.fetchAndStore(shared, src)
	})
	if err != nil {
		return nil, err
	}

	entries, _ := v.([]string)
	return slices.Clone(entries), nil
}

func (p *Provider) fetchAndStore(ctx context.Context, src ListSource) ([]string, error) {
	raw, err := p.fetch(ctx, src)
	if err != nil {
		p.config.metrics.RecordListFetch(src.Name, ListResultFailure)
		p.config.logger.WarnContext(ctx, "reference list fetch failed",
			"list", src.Name,
			"url", src.URL,
			"error", err,
		)
		return nil, err
	}
	p.config.metrics.RecordListFetch(src.Name, ListResultSuccess)

	if err := p.cache.Set(ctx, src.Name, raw, src.TTL); err != nil {
		p.config.logger.WarnContext(ctx, "reference list could not be cached",
			"list", src.Name,
			"error", err,
		)
	}

	return parseList(raw), nil
}

func (p *Provider) fetch(ctx context.Context, src ListSource) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", &SourceError{List: src.Name, URL: src.URL, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := p.config.client.Do(req)
	if err != nil {
		return "", &SourceError{List: src.Name, URL: src.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SourceError{List: src.Name, URL: src.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes+1))
	if err != nil {
		return "", &SourceError{List: src.Name, URL: src.URL, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(body) > maxListBytes {
		return "", &SourceError{List: src.Name, URL: src.URL, Err: errListTooLarge}
	}

	raw := string(body)
	if strings.TrimSpace(raw) == "" {
		return "", &SourceError{List: src.Name, URL: src.URL, Err: errEmptyList}
	}

	return raw, nil
}
