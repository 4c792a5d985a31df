package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type scriptedProber struct {
	states []bool
	index  int
}

func (p *scriptedProber) Probe(ctx context.Context) bool {
	state := p.states[p.index]
	if p.index < len(p.states)-1 {
		p.index++
	}
	return state
}

func TestWatcherProcessesOnlyOnTransitionToOnline(t *testing.T) {
	sender := &scriptedSender{}
	queue := NewQueue(NewMemoryStore(), sender)
	ctx := context.Background()
	queue.Enqueue(ctx, "/api/chat", "POST", nil)

	watcher := NewWatcher(queue, &scriptedProber{states: []bool{false, true, true, false, true}}, 0)
	var replays int
	watcher.OnProcess(func(Report, error) { replays++ })

	want := []bool{false, true, false, false, true}
	for i, expected := range want {
		if got := watcher.Check(ctx); got != expected {
			t.Fatalf("check %d: expected replay=%v, got %v", i, expected, got)
		}
	}
	if replays != 2 {
		t.Fatalf("expected 2 replays, got %d", replays)
	}
	if size, _ := queue.Size(ctx); size != 0 {
		t.Fatalf("expected queue drained after reconnect, got %d", size)
	}
}

func TestHealthProber(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHealthProber(server.URL, server.Client())
	if !prober.Probe(context.Background()) {
		t.Fatalf("expected healthy probe")
	}
	healthy.Store(false)
	if prober.Probe(context.Background()) {
		t.Fatalf("expected unhealthy probe")
	}
}
