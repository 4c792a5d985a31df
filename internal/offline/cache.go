package offline

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smartfarm/advisor/internal/logx"
)

const (
	offlineAPIBody    = "Offline - no cached data available"
	offlineStaticBody = "Offline"
	maxCachedBody     = 5 << 20
)

type CachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// ResponseCache stores GET responses keyed by URL.
type ResponseCache interface {
	Get(key string) (CachedResponse, bool)
	Put(key string, response CachedResponse)
	// Purge drops entries stored before cutoff and returns how many went.
	Purge(cutoff time.Time) int
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CachedResponse
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CachedResponse)}
}

func (c *MemoryCache) Get(key string) (CachedResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *MemoryCache) Put(key string, response CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = response
}

func (c *MemoryCache) Purge(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if entry.StoredAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// CachingTransport serves GETs from a cache when the network is down.
// API paths (/api/...) are network-first; everything else is cache-first.
// Non-GET requests pass straight through.
type CachingTransport struct {
	next  http.RoundTripper
	cache ResponseCache
	now   func() time.Time
}

func NewCachingTransport(next http.RoundTripper, cache ResponseCache) *CachingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachingTransport{next: next, cache: cache, now: time.Now}
}

func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return t.networkFirst(req)
	}
	return t.cacheFirst(req)
}

func (t *CachingTransport) networkFirst(req *http.Request) (*http.Response, error) {
	key := req.URL.String()
	resp, err := t.next.RoundTrip(req)
	if err == nil {
		return t.store(key, req, resp, false)
	}

	if cached, ok := t.cache.Get(key); ok {
		logx.Debug().Str("url", key).Msg("network failed, serving cached api response")
		return cached.response(req), nil
	}
	return offlineResponse(req, offlineAPIBody), nil
}

func (t *CachingTransport) cacheFirst(req *http.Request) (*http.Response, error) {
	key := req.URL.String()
	if cached, ok := t.cache.Get(key); ok {
		return cached.response(req), nil
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return offlineResponse(req, offlineStaticBody), nil
	}
	return t.store(key, req, resp, true)
}

// store buffers the body so it can be both cached and returned. When
// onlyOK is set only 200 responses are cached.
func (t *CachingTransport) store(key string, req *http.Request, resp *http.Response, onlyOK bool) (*http.Response, error) {
	if onlyOK && resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	if !onlyOK && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCachedBody+1))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(body) <= maxCachedBody {
		t.cache.Put(key, CachedResponse{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
			StoredAt:   t.now(),
		})
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (c CachedResponse) response(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Offline-Cache", "hit")
	return &http.Response{
		Status:        http.StatusText(c.StatusCode),
		StatusCode:    c.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

func offlineResponse(req *http.Request, body string) *http.Response {
	return &http.Response{
		Status:        "503 Service Unavailable",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
