package offline

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type switchableTransport struct {
	offline bool
	calls   int
	status  int
	body    string
}

func (s *switchableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if s.offline {
		return nil, errors.New("dial tcp: connection refused")
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s returned error: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestCachingTransportAPINetworkFirst(t *testing.T) {
	upstream := &switchableTransport{body: `{"fresh":1}`}
	client := &http.Client{Transport: NewCachingTransport(upstream, NewMemoryCache())}

	if status, body := get(t, client, "http://farm.test/api/capabilities"); status != 200 || body != `{"fresh":1}` {
		t.Fatalf("unexpected online response %d %q", status, body)
	}

	upstream.body = `{"fresh":2}`
	if _, body := get(t, client, "http://farm.test/api/capabilities"); body != `{"fresh":2}` {
		t.Fatalf("expected network-first to refetch, got %q", body)
	}

	upstream.offline = true
	if status, body := get(t, client, "http://farm.test/api/capabilities"); status != 200 || body != `{"fresh":2}` {
		t.Fatalf("expected cached response while offline, got %d %q", status, body)
	}
	if status, body := get(t, client, "http://farm.test/api/other"); status != http.StatusServiceUnavailable || body != "Offline - no cached data available" {
		t.Fatalf("expected offline API response, got %d %q", status, body)
	}
}

func TestCachingTransportStaticCacheFirst(t *testing.T) {
	upstream := &switchableTransport{body: "icon-bytes"}
	client := &http.Client{Transport: NewCachingTransport(upstream, nil)}

	get(t, client, "http://farm.test/icons/icon-192.png")
	get(t, client, "http://farm.test/icons/icon-192.png")
	if upstream.calls != 1 {
		t.Fatalf("expected cache-first to fetch once, got %d calls", upstream.calls)
	}

	upstream.offline = true
	if status, body := get(t, client, "http://farm.test/manifest.json"); status != http.StatusServiceUnavailable || body != "Offline" {
		t.Fatalf("expected offline static response, got %d %q", status, body)
	}
}

func TestCachingTransportDoesNotCacheStaticErrors(t *testing.T) {
	upstream := &switchableTransport{status: http.StatusNotFound, body: "missing"}
	client := &http.Client{Transport: NewCachingTransport(upstream, nil)}

	get(t, client, "http://farm.test/missing.png")
	get(t, client, "http://farm.test/missing.png")
	if upstream.calls != 2 {
		t.Fatalf("expected non-200 static responses to bypass cache, got %d calls", upstream.calls)
	}
}

func TestCachingTransportBypassesNonGET(t *testing.T) {
	upstream := &switchableTransport{offline: true}
	client := &http.Client{Transport: NewCachingTransport(upstream, nil)}

	if _, err := client.Post("http://farm.test/api/chat", "application/json", strings.NewReader("{}")); err == nil {
		t.Fatalf("expected POST to surface the transport error")
	}
}

func TestMemoryCachePurge(t *testing.T) {
	cache := NewMemoryCache()
	old := time.Unix(100, 0)
	cache.Put("old", CachedResponse{StatusCode: 200, StoredAt: old})
	cache.Put("new", CachedResponse{StatusCode: 200, StoredAt: old.Add(time.Hour)})

	if removed := cache.Purge(old.Add(time.Minute)); removed != 1 {
		t.Fatalf("expected 1 purged entry, got %d", removed)
	}
	if _, ok := cache.Get("new"); !ok {
		t.Fatalf("expected recent entry to survive purge")
	}
}
