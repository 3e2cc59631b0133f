package spacetravelling

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// GeneratedPage is a rendered response kept by the regeneration cache. A page
// with a Location is a redirect.
type GeneratedPage struct {
	Path        string
	Status      int
	Location    string
	Body        []byte
	GeneratedAt time.Time
}

// Generator renders the page for one path.
type Generator func(ctx context.Context) (GeneratedPage, error)

// PageCache keeps generated pages and regenerates them once they are older
// than the TTL. Stale pages are served while a single background generation
// replaces them. Pages are written through to the Store when one is set.
type PageCache struct {
	mu    sync.RWMutex
	pages map[string]GeneratedPage
	ttl   time.Duration
	store *Store
	group singleflight.Group

	// failures holds the last background generation error per path until a
	// generation of that path succeeds.
	failures map[string]error

	// OnError receives failures of background generations.
	OnError func(path string, err error)

	now func() time.Time
}

// NewPageCache creates a PageCache. store may be nil for a memory-only cache;
// otherwise previously stored pages are loaded.
func NewPageCache(store *Store, ttl time.Duration) (*PageCache, error) {
	c := &PageCache{
		pages:    make(map[string]GeneratedPage),
		failures: make(map[string]error),
		ttl:      ttl,
		store:    store,
		now:      time.Now,
	}
	if store != nil {
		// Redirects for unknown slugs only live for one interval.
		if _, err := store.DeleteExpiredRedirects(c.now().Add(-ttl)); err != nil {
			return nil, err
		}
		pages, err := store.ListPages()
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			c.pages[p.Path] = p
		}
	}
	return c, nil
}

func (c *PageCache) fresh(p GeneratedPage) bool {
	return c.now().Sub(p.GeneratedAt) < c.ttl
}

// Lookup returns the cached page for path regardless of age. Redirects are
// the exception: once stale they are dropped and reported as missing, so
// slugs that never existed do not accumulate.
func (c *PageCache) Lookup(path string) (GeneratedPage, bool) {
	c.mu.RLock()
	p, ok := c.pages[path]
	c.mu.RUnlock()
	if ok && p.Location != "" && !c.fresh(p) {
		c.expire(p)
		return GeneratedPage{}, false
	}
	return p, ok
}

// expire removes p unless it has been replaced in the meantime.
func (c *PageCache) expire(p GeneratedPage) {
	c.mu.Lock()
	cur, ok := c.pages[p.Path]
	if !ok || !cur.GeneratedAt.Equal(p.GeneratedAt) {
		c.mu.Unlock()
		return
	}
	delete(c.pages, p.Path)
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.DeletePage(p.Path); err != nil && c.OnError != nil {
			c.OnError(p.Path, err)
		}
	}
}

// Failure returns the error of the last failed background generation of
// path, or nil.
func (c *PageCache) Failure(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failures[path]
}

// Get returns the page for path. A fresh page is returned directly; a stale
// page is returned and regenerated in the background; a missing page is
// generated synchronously.
func (c *PageCache) Get(ctx context.Context, path string, gen Generator) (GeneratedPage, error) {
	if p, ok := c.Lookup(path); ok {
		if !c.fresh(p) {
			c.GenerateInBackground(path, gen)
		}
		return p, nil
	}
	return c.Regenerate(ctx, path, gen)
}

// Regenerate runs gen for path and stores the result. Concurrent calls for
// the same path share one generation, which is not canceled with ctx since
// other callers may be waiting on it.
func (c *PageCache) Regenerate(ctx context.Context, path string, gen Generator) (GeneratedPage, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(path, func() (any, error) {
		p, err := gen(shared)
		if err != nil {
			return GeneratedPage{}, err
		}
		p.Path = path
		if p.GeneratedAt.IsZero() {
			p.GeneratedAt = c.now()
		}
		if err := c.put(p); err != nil {
			return GeneratedPage{}, err
		}
		return p, nil
	})
	if err != nil {
		return GeneratedPage{}, err
	}
	return v.(GeneratedPage), nil
}

// GenerateInBackground starts a generation for path unless one is already
// running. Failures keep the previous page and are reported to OnError.
func (c *PageCache) GenerateInBackground(path string, gen Generator) {
	ch := c.group.DoChan(path+"#bg", func() (any, error) {
		return c.Regenerate(context.Background(), path, gen)
	})
	go func() {
		res := <-ch
		if res.Err == nil {
			return
		}
		c.mu.Lock()
		c.failures[path] = res.Err
		c.mu.Unlock()
		if c.OnError != nil {
			c.OnError(path, res.Err)
		}
	}()
}

// Invalidate drops path from the cache and the store.
func (c *PageCache) Invalidate(path string) error {
	c.mu.Lock()
	delete(c.pages, path)
	delete(c.failures, path)
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.DeletePage(path); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

func (c *PageCache) put(p GeneratedPage) error {
	if c.store != nil {
		if err := c.store.SavePage(p); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.pages[p.Path] = p
	delete(c.failures, p.Path)
	c.mu.Unlock()
	return nil
}
