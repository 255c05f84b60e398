package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
)

// DefaultCacheTTL is a deliberately short window: client and scope records
// change rarely but a stale disabled-flag must not linger.
const DefaultCacheTTL = time.Minute

// CachingClients wraps a Clients repository with a read-through TTL cache.
// Composition is explicit: construct it around the inner repo at wiring time.
type CachingClients struct {
	Inner Clients
	TTL   time.Duration

	mu    sync.Mutex
	items map[string]cachedClient
}

type cachedClient struct {
	client  domain.Client
	expires time.Time
}

func NewCachingClients(inner Clients, ttl time.Duration) *CachingClients {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingClients{Inner: inner, TTL: ttl, items: make(map[string]cachedClient)}
}

func (c *CachingClients) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.items[id]; ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.client, nil
	}
	c.mu.Unlock()

	client, err := c.Inner.GetClientByID(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	c.mu.Lock()
	c.items[id] = cachedClient{client: client, expires: now.Add(c.TTL)}
	c.mu.Unlock()

	return client, nil
}

func (c *CachingClients) CreateClient(ctx context.Context, client domain.Client) error {
	return c.Inner.CreateClient(ctx, client)
}

func (c *CachingClients) DeleteClient(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
	return c.Inner.DeleteClient(ctx, id)
}

func (c *CachingClients) IsEmpty(ctx context.Context) (bool, error) {
	return c.Inner.IsEmpty(ctx)
}

// CachingScopes is the scope-store counterpart of CachingClients.
type CachingScopes struct {
	Inner Scopes
	TTL   time.Duration

	mu    sync.Mutex
	items map[string]cachedScope
}

type cachedScope struct {
	scope   domain.Scope
	expires time.Time
}

func NewCachingScopes(inner Scopes, ttl time.Duration) *CachingScopes {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingScopes{Inner: inner, TTL: ttl, items: make(map[string]cachedScope)}
}

func (c *CachingScopes) GetScopeByName(ctx context.Context, name string) (domain.Scope, error) {
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.items[name]; ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.scope, nil
	}
	c.mu.Unlock()

	scope, err := c.Inner.GetScopeByName(ctx, name)
	if err != nil {
		return domain.Scope{}, err
	}

	c.mu.Lock()
	c.items[name] = cachedScope{scope: scope, expires: now.Add(c.TTL)}
	c.mu.Unlock()

	return scope, nil
}

func (c *CachingScopes) GetScopesByNames(ctx context.Context, names []string) ([]domain.Scope, error) {
	out := make([]domain.Scope, 0, len(names))
	for _, name := range names {
		scope, err := c.GetScopeByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, scope)
	}
	return out, nil
}

func (c *CachingScopes) CreateScope(ctx context.Context, s domain.Scope) error {
	return c.Inner.CreateScope(ctx, s)
}

func (c *CachingScopes) DeleteScope(ctx context.Context, name string) error {
	c.mu.Lock()
	delete(c.items, name)
	c.mu.Unlock()
	return c.Inner.DeleteScope(ctx, name)
}

func (c *CachingScopes) IsEmpty(ctx context.Context) (bool, error) {
	return c.Inner.IsEmpty(ctx)
}
