// Package offline keeps mutating API calls made without connectivity and
// replays them once the backend is reachable again.
package offline

import (
	"encoding/json"
	"time"
)

// DefaultStorageKey names the single slot holding the queue.
const DefaultStorageKey = "smartfarm-offline-queue"

type QueuedRequest struct {
	ID            string          `json:"id"`
	Endpoint      string          `json:"endpoint"`
	Method        string          `json:"method"`
	Body          json.RawMessage `json:"body,omitempty"`
	Timestamp     int64           `json:"timestamp"`
	Attempts      int             `json:"attempts,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
	NextAttemptAt int64           `json:"nextAttemptAt,omitempty"`
}

func (r QueuedRequest) dueAt(now time.Time) bool {
	return r.NextAttemptAt == 0 || r.NextAttemptAt <= now.UnixMilli()
}

// Report summarizes one replay pass.
type Report struct {
	Delivered []string `json:"delivered"`
	Failed    []string `json:"failed"`
	Expired   []string `json:"expired"`
	Skipped   int      `json:"skipped"`
	Remaining int      `json:"remaining"`
}
