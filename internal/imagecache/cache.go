package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTTL is how long an entry is trusted before Cleanup drops it.
	DefaultTTL = 30 * time.Minute
	// EagerCount is how many URLs PrefetchBatch waits for.
	EagerCount = 3
	// DeferDelay is how long PrefetchBatch waits before the rest.
	DeferDelay = 100 * time.Millisecond
)

// Prefetcher warms one image.
type Prefetcher interface {
	Prefetch(ctx context.Context, url string) error
}

// Entry records what is known about one URL.
type Entry struct {
	Loaded     bool
	Error      bool
	Prefetched bool
	Timestamp  time.Time
}

// Cache remembers which images were prefetched and whether that worked.
type Cache struct {
	fetch Prefetcher
	ttl   time.Duration
	delay time.Duration
	log   *zap.Logger
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	pending sync.WaitGroup
}

// New returns a cache over fetch. A non-positive ttl uses DefaultTTL.
func New(fetch Prefetcher, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		fetch:   fetch,
		ttl:     ttl,
		delay:   DeferDelay,
		log:     log,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// Prefetch warms url unless it was already prefetched within the TTL. The
// outcome is recorded, never returned.
func (c *Cache) Prefetch(ctx context.Context, url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	if e, ok := c.entries[url]; ok && e.Prefetched && !c.expired(e) {
		c.mu.Unlock()
		return
	}
	c.entries[url] = Entry{Prefetched: true, Timestamp: c.now()}
	c.mu.Unlock()

	err := c.fetch.Prefetch(ctx, url)

	c.mu.Lock()
	c.entries[url] = Entry{Loaded: err == nil, Error: err != nil, Prefetched: true, Timestamp: c.now()}
	c.mu.Unlock()
	if err != nil {
		c.log.Debug("image prefetch failed", zap.String("url", url), zap.Error(err))
	}
}

// PrefetchBatch waits for the first EagerCount URLs, then warms the rest in
// the background after a short delay. The background part survives ctx being
// cancelled once PrefetchBatch has returned.
func (c *Cache) PrefetchBatch(ctx context.Context, urls []string) {
	eager := urls
	var rest []string
	if len(urls) > EagerCount {
		eager, rest = urls[:EagerCount], urls[EagerCount:]
	}

	var g errgroup.Group
	for _, u := range eager {
		g.Go(func() error {
			c.Prefetch(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	if len(rest) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		<-timer.C
		var g errgroup.Group
		for _, u := range rest {
			g.Go(func() error {
				c.Prefetch(bg, u)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until background prefetches started by PrefetchBatch finish.
func (c *Cache) Wait() {
	c.pending.Wait()
}

// Get returns the entry for url. An expired entry is dropped and reported
// missing.
func (c *Cache) Get(url string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return Entry{}, false
	}
	if c.expired(e) {
		delete(c.entries, url)
		return Entry{}, false
	}
	return e, true
}

// Cleanup drops every entry older than the TTL and returns how many it removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for url, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, url)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// expired requires c.mu held.
func (c *Cache) expired(e Entry) bool {
	return c.now().Sub(e.Timestamp) > c.ttl
}

// HTTPPrefetcher warms images by downloading them and discarding the body.
type HTTPPrefetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPPrefetcher returns a prefetcher with a 15 second timeout.
func NewHTTPPrefetcher() *HTTPPrefetcher {
	return &HTTPPrefetcher{Client: &http.Client{Timeout: 15 * time.Second}, UserAgent: "pandals/0.1"}
}

// Prefetch implements Prefetcher.
func (p *HTTPPrefetcher) Prefetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return nil
}
