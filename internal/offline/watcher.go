package offline

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smartfarm/advisor/internal/logx"
)

// Prober reports whether the backend is reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HealthProber issues GET <baseURL>/health and treats any 2xx as online.
type HealthProber struct {
	url    string
	client *http.Client
}

func NewHealthProber(baseURL string, client *http.Client) *HealthProber {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HealthProber{url: strings.TrimRight(baseURL, "/") + "/health", client: client}
}

func (p *HealthProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Watcher polls a Prober and runs Queue.Process whenever connectivity
// comes back. The first successful probe counts as a transition.
type Watcher struct {
	queue    *Queue
	prober   Prober
	interval time.Duration

	mu       sync.Mutex
	online   bool
	onReport func(Report, error)
}

func NewWatcher(queue *Queue, prober Prober, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{queue: queue, prober: prober, interval: interval}
}

// OnProcess registers a callback invoked after every triggered replay.
func (w *Watcher) OnProcess(fn func(Report, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReport = fn
}

func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Check probes once and replays the queue on an offline to online
// transition. It reports whether a replay ran.
func (w *Watcher) Check(ctx context.Context) bool {
	online := w.prober.Probe(ctx)

	w.mu.Lock()
	transitioned := online && !w.online
	if online != w.online {
		logx.Info().Bool("online", online).Msg("connectivity changed")
	}
	w.online = online
	callback := w.onReport
	w.mu.Unlock()

	if !transitioned {
		return false
	}
	report, err := w.queue.Process(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("offline queue replay failed")
	}
	if callback != nil {
		callback(report, err)
	}
	return true
}

// Run checks immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
