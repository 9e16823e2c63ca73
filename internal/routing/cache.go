package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

const DefaultTTL = 5 * time.Minute

// DefaultFetchTimeout bounds a settings store query. A query that runs past
// it counts as the store being unreachable.
const DefaultFetchTimeout = 5 * time.Second

// DefaultFallback is the payee used when an organization has no routing
// settings. Deployments override it through configuration.
var DefaultFallback = Settings{
	PayeeAddress: "fees.collection@upi",
	DisplayName:  "School Management System",
}

// Lookup outcomes reported to the Recorder.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupStale    = "stale"
	LookupFallback = "fallback"
)

// Recorder observes cache lookups.
type Recorder interface {
	RoutingLookup(result string)
}

type entry struct {
	settings Settings
	epoch    uint64
}

// Cache keeps each organization's settings for a fixed TTL. Entries can be
// expired for one organization or, by bumping the epoch, for all of them.
// The mutex only protects the map; concurrent callers may still observe
// settings up to one TTL old.
type Cache struct {
	store    Store
	ttl      time.Duration
	timeout  time.Duration
	fallback Settings
	now      func() time.Time
	recorder Recorder

	mu      sync.RWMutex
	entries map[string]entry
	epoch   uint64
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithFallback(payeeAddress, displayName string) Option {
	return func(c *Cache) {
		if payeeAddress != "" {
			c.fallback.PayeeAddress = payeeAddress
		}

		if displayName != "" {
			c.fallback.DisplayName = displayName
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		ttl:      DefaultTTL,
		timeout:  DefaultFetchTimeout,
		fallback: DefaultFallback,
		now:      time.Now,
		entries:  make(map[string]entry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RoutingID returns the payee address new payments of the organization go to.
func (c *Cache) RoutingID(ctx context.Context, organizationID string) (string, error) {
	p, err := c.Payload(ctx, organizationID)
	if err != nil {
		return "", err
	}

	return p.RoutingID, nil
}

// Payload returns the routing identity for the organization. A missing
// configuration yields the fallback identity rather than an error; a store
// outage or a query past the fetch deadline yields the last known settings
// when there are any. Only a caller that gave up gets an error.
func (c *Cache) Payload(ctx context.Context, organizationID string) (Payload, error) {
	if organizationID == "" {
		slog.Warn("routing lookup without organization, using fallback payee", "payee", c.fallback.PayeeAddress)
		c.record(LookupFallback)

		return c.fallbackPayload(), nil
	}

	if s, ok := c.fresh(organizationID); ok {
		c.record(LookupHit)
		return toPayload(s), nil
	}

	s, err := c.fetch(ctx, organizationID)
	if err == nil {
		c.record(LookupMiss)
		return toPayload(*s), nil
	}

	if storage.Abandoned(ctx) {
		return Payload{}, ctx.Err()
	}

	if errors.Is(err, storage.ErrNotFound) {
		// A configuration gap: payments made now land in the fallback account.
		slog.Warn("no routing settings configured for organization, using fallback payee",
			"organization_id", organizationID,
			"payee", c.fallback.PayeeAddress,
		)
		c.record(LookupFallback)

		return c.fallbackPayload(), nil
	}

	if s, ok := c.last(organizationID); ok {
		slog.Warn("routing settings unavailable, serving expired entry",
			"organization_id", organizationID,
			"fetched_at", s.FetchedAt,
			"error", err,
		)
		c.record(LookupStale)

		return toPayload(s), nil
	}

	slog.Error("routing settings unavailable, using fallback payee",
		"organization_id", organizationID,
		"payee", c.fallback.PayeeAddress,
		"error", err,
	)
	c.record(LookupFallback)

	return c.fallbackPayload(), nil
}

// ForceRefresh bypasses the cache, stores what the settings store returns
// and hands it back. An organization without settings loses its entry.
func (c *Cache) ForceRefresh(ctx context.Context, organizationID string) (*Settings, error) {
	s, err := c.fetch(ctx, organizationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.mu.Lock()
			delete(c.entries, organizationID)
			c.mu.Unlock()
		}

		return nil, err
	}

	return s, nil
}

// Invalidate expires the entry of one organization, or every entry when
// organizationID is AllOrganizations. Expired entries are refetched on their
// next lookup and normal TTL behavior resumes from there.
func (c *Cache) Invalidate(organizationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if organizationID == AllOrganizations {
		c.epoch++
		slog.Info("routing cache invalidated", "scope", "all")

		return
	}

	delete(c.entries, organizationID)
	slog.Info("routing cache invalidated", "organization_id", organizationID)
}

func (c *Cache) fresh(organizationID string) (Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[organizationID]
	if !ok || e.epoch != c.epoch {
		return Settings{}, false
	}

	if c.now().Sub(e.settings.FetchedAt) >= c.ttl {
		return Settings{}, false
	}

	return e.settings, true
}

func (c *Cache) last(organizationID string) (Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[organizationID]

	return e.settings, ok
}

func (c *Cache) fetch(ctx context.Context, organizationID string) (*Settings, error) {
	// Settings fetched across an invalidation must not count as current.
	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	ctx, cancel := storage.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.store.ActiveSettings(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("fetching routing settings: %w", err)
	}

	fetched := *s
	fetched.OrganizationID = organizationID
	fetched.FetchedAt = c.now()

	c.mu.Lock()
	c.entries[organizationID] = entry{settings: fetched, epoch: epoch}
	c.mu.Unlock()

	return &fetched, nil
}

func (c *Cache) fallbackPayload() Payload {
	return Payload{
		RoutingID:   c.fallback.PayeeAddress,
		DisplayName: c.fallback.DisplayName,
		Fallback:    true,
	}
}

func (c *Cache) record(result string) {
	if c.recorder != nil {
		c.recorder.RoutingLookup(result)
	}
}

func toPayload(s Settings) Payload {
	return Payload{
		RoutingID:   s.PayeeAddress,
		DisplayName: s.DisplayName,
	}
}

type localInvalidator struct {
	cache *Cache
}

// Local returns an Invalidator that applies invalidations to this process only.
func Local(c *Cache) Invalidator {
	return localInvalidator{cache: c}
}

func (l localInvalidator) Invalidate(_ context.Context, organizationID string) error {
	l.cache.Invalidate(organizationID)
	return nil
}
