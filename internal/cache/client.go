package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/realgarit/intuneup/pkg/constants"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
)

// Source is the uncached policy API.
type Source interface {
	Fetch(ctx context.Context, category policy.Category) ([]policy.RawPolicy, error)
	Create(ctx context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error)
	Patch(ctx context.Context, category policy.Category, id string, payload policy.Patch) error
}

// Feeds is the uncached discovery API.
type Feeds interface {
	LatestFeatureUpdateVersion(ctx context.Context) (string, error)
	LatestQualityUpdateRelease(ctx context.Context) (string, error)
	OrganizationName(ctx context.Context) (string, error)
}

const (
	policyPrefix    = Namespace + "policies:"
	discoveryPrefix = Namespace + "discovery:"

	feedFeatureUpdateVersion = "featureUpdateVersion"
	feedQualityUpdateRelease = "qualityUpdateRelease"
	feedOrganization         = "organization"
)

var feeds = []string{feedFeatureUpdateVersion, feedQualityUpdateRelease, feedOrganization}

// CachedClient decorates a Source and Feeds with TTL caching. Concurrent
// fetches of the same key share one request. Failures are never cached.
//
// Every key has a generation that invalidation bumps. A fetch started
// before an invalidation neither stores its result nor satisfies a caller
// that arrived after it.
type CachedClient struct {
	source Source
	feeds  Feeds
	store  *Cache
	group  singleflight.Group

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64

	policyTTL    time.Duration
	discoveryTTL time.Duration
	logger       *zerolog.Logger
}

// Option configures a CachedClient.
type Option func(*CachedClient)

// WithPolicyTTL sets how long fetched collections stay fresh.
func WithPolicyTTL(d time.Duration) Option {
	return func(c *CachedClient) {
		c.policyTTL = d
	}
}

// WithDiscoveryTTL sets how long discovery values stay fresh.
func WithDiscoveryTTL(d time.Duration) Option {
	return func(c *CachedClient) {
		c.discoveryTTL = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *CachedClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient wraps source and feeds. feeds may be nil when discovery is
// not needed.
func NewClient(source Source, feeds Feeds, opts ...Option) *CachedClient {
	c := &CachedClient{
		source:       source,
		feeds:        feeds,
		store:        New(constants.PolicyCacheTTL, constants.CacheCleanupInterval),
		policyTTL:    constants.PolicyCacheTTL,
		discoveryTTL: constants.DiscoveryCacheTTL,
		logger:       logging.Default(),
		gens:         make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached collection of category, fetching on a miss.
// Callers get their own copies.
func (c *CachedClient) Fetch(ctx context.Context, category policy.Category) ([]policy.RawPolicy, error) {
	key := policyPrefix + category.String()
	if v, ok := c.store.Get(key); ok {
		c.logger.Trace().Str("key", key).Msg("Cache hit")
		return clonePolicies(v.([]policy.RawPolicy)), nil
	}

	v, err := c.load(key, c.policyTTL, func() (any, error) {
		return c.source.Fetch(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return clonePolicies(v.([]policy.RawPolicy)), nil
}

// flight is the result of one shared load and the generation it began in.
type flight struct {
	value any
	gen   uint64
}

// load runs get once for all concurrent callers of key and caches the
// result unless key was invalidated meanwhile. A caller whose generation
// is newer than the flight it joined loads again.
func (c *CachedClient) load(key string, ttl time.Duration, get func() (any, error)) (any, error) {
	for {
		want := c.generation(key)
		v, err, _ := c.group.Do(key, func() (any, error) {
			start := c.generation(key)
			value, err := get()
			if err != nil {
				return nil, err
			}
			c.storeIfCurrent(key, start, value, ttl)
			return flight{value: value, gen: start}, nil
		})
		if err != nil {
			return nil, err
		}
		f := v.(flight)
		if f.gen >= want {
			return f.value, nil
		}
		c.logger.Trace().Str("key", key).Msg("Discarding fetch started before invalidation")
	}
}

func (c *CachedClient) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch + c.gens[key]
}

func (c *CachedClient) storeIfCurrent(key string, start uint64, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch+c.gens[key] != start {
		return
	}
	c.store.SetWithTTL(key, value, ttl)
}

// Create passes through to the source.
func (c *CachedClient) Create(ctx context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error) {
	return c.source.Create(ctx, category, payload)
}

// Patch passes through to the source.
func (c *CachedClient) Patch(ctx context.Context, category policy.Category, id string, payload policy.Patch) error {
	return c.source.Patch(ctx, category, id, payload)
}

// Invalidate drops the cached collection of category.
func (c *CachedClient) Invalidate(category policy.Category) {
	key := policyPrefix + category.String()
	c.mu.Lock()
	c.gens[key]++
	c.store.Delete(key)
	c.mu.Unlock()
	c.group.Forget(key)
	c.logger.Debug().Str("category", category.String()).Msg("Invalidated policy cache")
}

// InvalidateAll drops every cached collection and discovery value.
func (c *CachedClient) InvalidateAll() {
	c.mu.Lock()
	c.epoch++
	n := c.store.DeletePrefix(Namespace)
	c.mu.Unlock()
	for _, key := range keys() {
		c.group.Forget(key)
	}
	c.logger.Debug().Int("entries", n).Msg("Invalidated cache")
}

// LatestFeatureUpdateVersion implements Feeds.
func (c *CachedClient) LatestFeatureUpdateVersion(ctx context.Context) (string, error) {
	return c.discover(ctx, feedFeatureUpdateVersion, func(ctx context.Context, f Feeds) (string, error) {
		return f.LatestFeatureUpdateVersion(ctx)
	})
}

// LatestQualityUpdateRelease implements Feeds.
func (c *CachedClient) LatestQualityUpdateRelease(ctx context.Context) (string, error) {
	return c.discover(ctx, feedQualityUpdateRelease, func(ctx context.Context, f Feeds) (string, error) {
		return f.LatestQualityUpdateRelease(ctx)
	})
}

// OrganizationName implements Feeds.
func (c *CachedClient) OrganizationName(ctx context.Context) (string, error) {
	return c.discover(ctx, feedOrganization, func(ctx context.Context, f Feeds) (string, error) {
		return f.OrganizationName(ctx)
	})
}

func (c *CachedClient) discover(ctx context.Context, feed string, get func(context.Context, Feeds) (string, error)) (string, error) {
	if c.feeds == nil {
		return "", nil
	}
	key := discoveryPrefix + feed
	if v, ok := c.store.Get(key); ok {
		return v.(string), nil
	}

	v, err := c.load(key, c.discoveryTTL, func() (any, error) {
		return get(ctx, c.feeds)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// keys lists every key the client stores.
func keys() []string {
	out := make([]string, 0, len(policy.Categories())+len(feeds))
	for _, category := range policy.Categories() {
		out = append(out, policyPrefix+category.String())
	}
	for _, feed := range feeds {
		out = append(out, discoveryPrefix+feed)
	}
	return out
}

func clonePolicies(in []policy.RawPolicy) []policy.RawPolicy {
	out := make([]policy.RawPolicy, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
