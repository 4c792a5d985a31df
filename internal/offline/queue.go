package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultReplayConcurrency = 8

var ErrInvalidRequest = errors.New("invalid queued request")

// Queue is the durable FIFO of undelivered requests. All store mutations
// go through mu; replay passes are serialized by processMu so enqueues can
// proceed while a pass is delivering.
type Queue struct {
	mu        sync.Mutex
	processMu sync.Mutex

	store       Store
	sender      Sender
	retry       RetryPolicy
	concurrency int
	now         func() time.Time

	lastMillis int64
	counter    int
}

type Option func(*Queue)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(q *Queue) { q.retry = policy }
}

func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

func NewQueue(store Store, sender Sender, opts ...Option) *Queue {
	q := &Queue{
		store:       store,
		sender:      sender,
		concurrency: defaultReplayConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a request and persists the queue before returning its id.
// body may be raw JSON ([]byte, json.RawMessage) or any JSON-encodable value.
func (q *Queue) Enqueue(ctx context.Context, endpoint string, method string, body any) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("%w: endpoint is required", ErrInvalidRequest)
	}
	if method == "" {
		method = "POST"
	}
	raw, err := encodeBody(body)
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	request := QueuedRequest{
		ID:        q.nextID(now),
		Endpoint:  endpoint,
		Method:    strings.ToUpper(method),
		Body:      raw,
		Timestamp: now.UnixMilli(),
	}

	pending, err := q.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load queue: %w", err)
	}
	pending = append(pending, request)
	if err := q.store.Save(ctx, pending); err != nil {
		return "", fmt.Errorf("persist queue: %w", err)
	}

	logx.Debug().Str("id", request.ID).Str("endpoint", endpoint).Int("size", len(pending)).Msg("request queued")
	return request.ID, nil
}

// nextID yields "<epoch-ms>-<counter>", unique within the process.
func (q *Queue) nextID(now time.Time) string {
	millis := now.UnixMilli()
	if millis != q.lastMillis {
		q.lastMillis = millis
		q.counter = 0
	}
	q.counter++
	return strconv.FormatInt(millis, 10) + "-" + strconv.Itoa(q.counter)
}

func (q *Queue) Pending(ctx context.Context) ([]QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Load(ctx)
}

func (q *Queue) Size(ctx context.Context) (int, error) {
	pending, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Save(ctx, nil)
}

type outcome struct {
	delivered bool
	err       error
}

// Process delivers every due request concurrently and then rewrites the
// queue once: delivered requests are removed, the rest keep their order,
// and anything enqueued during the pass is kept.
func (q *Queue) Process(ctx context.Context) (Report, error) {
	q.processMu.Lock()
	defer q.processMu.Unlock()

	q.mu.Lock()
	snapshot, err := q.store.Load(ctx)
	q.mu.Unlock()
	if err != nil {
		return Report{}, fmt.Errorf("load queue: %w", err)
	}

	report := Report{Delivered: []string{}, Failed: []string{}, Expired: []string{}}
	if len(snapshot) == 0 {
		return report, nil
	}

	started := q.now()
	due := make([]QueuedRequest, 0, len(snapshot))
	for _, request := range snapshot {
		if request.dueAt(started) {
			due = append(due, request)
		} else {
			report.Skipped++
		}
	}

	outcomes := make([]outcome, len(due))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(q.concurrency)
	for i, request := range due {
		group.Go(func() error {
			err := q.sender.Send(groupCtx, request)
			outcomes[i] = outcome{delivered: err == nil, err: err}
			return nil
		})
	}
	_ = group.Wait()

	results := make(map[string]outcome, len(due))
	for i, request := range due {
		results[request.ID] = outcomes[i]
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.store.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reload queue: %w", err)
	}

	finished := q.now()
	remaining := make([]QueuedRequest, 0, len(current))
	for _, request := range current {
		result, attempted := results[request.ID]
		switch {
		case !attempted:
			remaining = append(remaining, request)
		case result.delivered:
			report.Delivered = append(report.Delivered, request.ID)
		default:
			request.Attempts++
			request.LastError = result.err.Error()
			if q.retry.expired(request.Attempts) {
				report.Expired = append(report.Expired, request.ID)
				logx.Warn().Str("id", request.ID).Int("attempts", request.Attempts).Str("last_error", request.LastError).Msg("dropping queued request after max attempts")
				continue
			}
			request.NextAttemptAt = q.retry.nextAttempt(finished, request.Attempts)
			report.Failed = append(report.Failed, request.ID)
			remaining = append(remaining, request)
		}
	}

	if err := q.store.Save(ctx, remaining); err != nil {
		return Report{}, fmt.Errorf("persist queue: %w", err)
	}
	report.Remaining = len(remaining)

	metrics.RecordQueueDelivery("delivered", len(report.Delivered))
	metrics.RecordQueueDelivery("failed", len(report.Failed))
	metrics.RecordQueueDelivery("expired", len(report.Expired))
	logx.Info().
		Int("delivered", len(report.Delivered)).
		Int("failed", len(report.Failed)).
		Int("expired", len(report.Expired)).
		Int("skipped", report.Skipped).
		Int("remaining", report.Remaining).
		Msg("offline queue processed")
	return report, nil
}

func encodeBody(body any) (json.RawMessage, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return validJSON(value)
	case []byte:
		return validJSON(value)
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		return raw, nil
	}
}

func validJSON(raw []byte) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidRequest)
	}
	return append(json.RawMessage(nil), raw...), nil
}
