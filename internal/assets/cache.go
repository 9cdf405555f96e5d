package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/chartbridge/internal/engine"
)

// Fetcher retrieves one named asset from the engine bundle origin.
type Fetcher func(ctx context.Context, name string) ([]byte, error)

// Cache stores fetched engine bundle assets forever. The bundle is versioned
// by its origin URL, so entries are never invalidated; concurrent first
// requests for the same asset are collapsed into one upstream fetch.
type Cache struct {
	fetch Fetcher
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string][]byte
}

// NewCache builds a Cache around the given fetcher.
func NewCache(fetch Fetcher) *Cache {
	return &Cache{
		fetch:   fetch,
		entries: make(map[string][]byte),
	}
}

// HTTPFetcher fetches assets from baseURL/<name> over HTTP.
func HTTPFetcher(baseURL string, client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, name string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+name, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status=%d", name, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

// Get returns the named asset, fetching it on first use. Failed fetches are
// not cached so a later request can retry.
func (c *Cache) Get(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		data, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			return data, nil
		}

		data, err := c.fetch(ctx, name)
		if err != nil {
			return nil, engine.NewError(engine.CodeAssetUnavailable, "fetch asset "+name, err)
		}
		c.mu.Lock()
		c.entries[name] = data
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
