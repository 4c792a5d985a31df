package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrDeliveryFailed = errors.New("delivery failed")

type Sender interface {
	Send(ctx context.Context, request QueuedRequest) error
}

// HTTPSender replays a request against baseURL+endpoint as JSON.
type HTTPSender struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSender(baseURL string, client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPSender{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSender) Send(ctx context.Context, request QueuedRequest) error {
	method := request.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+request.Endpoint, body)
	if err != nil {
		return fmt.Errorf("build replay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned status %d", ErrDeliveryFailed, method, request.Endpoint, resp.StatusCode)
	}
	return nil
}
