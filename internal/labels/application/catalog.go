package application

import (
	"sync"
	"sync/atomic"

	labels "telemetry-console/internal/labels/domain"
	"telemetry-console/internal/observability/metrics"
)

// Catalog resolves display labels for telemetry identifiers.
// Overrides win; everything else is segmented and memoised until the cache
// holds cacheLimit entries. Later identifiers are segmented on every lookup.
type Catalog struct {
	overrides  map[string]string
	cache      sync.Map
	cached     atomic.Int64
	cacheLimit int64
}

// DefaultCacheLimit bounds memoised labels per catalog.
const DefaultCacheLimit = 4096

// Option configures a Catalog.
type Option func(*Catalog)

// WithOverrides sets fixed labels for specific identifiers.
func WithOverrides(overrides map[string]string) Option {
	return func(c *Catalog) {
		for key, label := range overrides {
			if key == "" || label == "" {
				continue
			}
			c.overrides[key] = label
		}
	}
}

// WithCacheLimit bounds the memo cache. limit <= 0 disables memoisation.
func WithCacheLimit(limit int) Option {
	return func(c *Catalog) {
		if limit < 0 {
			limit = 0
		}
		c.cacheLimit = int64(limit)
	}
}

// NewCatalog constructs a Catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{overrides: make(map[string]string), cacheLimit: DefaultCacheLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Label returns the display label for identifier.
func (c *Catalog) Label(identifier string) string {
	if c == nil {
		return labels.Segment(identifier)
	}
	if label, ok := c.overrides[identifier]; ok {
		metrics.IncLabelLookup(metrics.LabelResultOverride)
		return label
	}
	if cached, ok := c.cache.Load(identifier); ok {
		metrics.IncLabelLookup(metrics.LabelResultHit)
		return cached.(string)
	}
	label := labels.Segment(identifier)
	c.remember(identifier, label)
	metrics.IncLabelLookup(metrics.LabelResultMiss)
	return label
}

func (c *Catalog) remember(identifier, label string) {
	if c.cached.Add(1) > c.cacheLimit {
		c.cached.Add(-1)
		return
	}
	if _, loaded := c.cache.LoadOrStore(identifier, label); loaded {
		c.cached.Add(-1)
	}
}

// Labels resolves a batch of identifiers.
func (c *Catalog) Labels(identifiers []string) map[string]string {
	result := make(map[string]string, len(identifiers))
	for _, identifier := range identifiers {
		result[identifier] = c.Label(identifier)
	}
	return result
}

// Overrides returns a copy of the configured overrides.
func (c *Catalog) Overrides() map[string]string {
	if c == nil {
		return nil
	}
	out := make(map[string]string, len(c.overrides))
	for key, label := range c.overrides {
		out[key] = label
	}
	return out
}
