package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/offline"
)

type apiClient struct {
	baseURL string
	// cached serves GET /api/ requests through the offline response cache.
	cached *http.Client
	direct *http.Client
	queue  func(ctx context.Context) (*offline.Queue, error)
}

type apiError struct {
	Status    int
	Code      string
	Message   string
	Details   string
	RequestID string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// queuedError reports that a request could not be sent and was stored for
// replay instead.
type queuedError struct {
	ID       string
	Endpoint string
	Cause    error
}

func (e *queuedError) Error() string {
	return fmt.Sprintf("request to %s queued as %s: %v", e.Endpoint, e.ID, e.Cause)
}

func (e *queuedError) Unwrap() error {
	return e.Cause
}

func (c *apiClient) request(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	requestURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	client := c.direct
	if method == http.MethodGet && strings.HasPrefix(path, "/api/") {
		client = c.cached
	}
	return c.do(client, req)
}

// postOrQueue sends a JSON POST and, when the server cannot be reached,
// stores it in the offline queue. API errors are returned as is.
func (c *apiClient) postOrQueue(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := c.request(ctx, http.MethodPost, path, payload)
	if err == nil || !isTransportError(err) || c.queue == nil {
		return body, err
	}

	queue, qerr := c.queue(ctx)
	if qerr != nil {
		return nil, fmt.Errorf("%w (offline queue unavailable: %v)", err, qerr)
	}
	id, qerr := queue.Enqueue(ctx, path, http.MethodPost, payload)
	if qerr != nil {
		return nil, fmt.Errorf("%w (enqueue failed: %v)", err, qerr)
	}
	logx.Info().Str("id", id).Str("endpoint", path).Msg("request queued for replay")
	return nil, &queuedError{ID: id, Endpoint: path, Cause: err}
}

func (c *apiClient) upload(ctx context.Context, path string, fileField string, fileName string, data []byte, fields map[string]string) ([]byte, error) {
	requestURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(c.direct, req)
}

func (c *apiClient) do(client *http.Client, req *http.Request) ([]byte, error) {
	res, err := client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 400 {
		apiErr := &apiError{
			Status:  res.StatusCode,
			Code:    "http_error",
			Message: strings.TrimSpace(string(responseBody)),
		}

		var envelope struct {
			Error     string `json:"error"`
			Details   string `json:"details"`
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		}
		if err := json.Unmarshal(responseBody, &envelope); err == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
			apiErr.Details = envelope.Details
			apiErr.RequestID = envelope.RequestID
			if envelope.Code != "" {
				apiErr.Code = envelope.Code
			}
		}
		return nil, apiErr
	}

	return responseBody, nil
}

type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func isTransportError(err error) bool {
	var transportErr *transportError
	return errors.As(err, &transportErr)
}

func (c *apiClient) resolveURL(path string) (string, error) {
	base := strings.TrimSpace(c.baseURL)
	if base == "" {
		return "", errors.New("base URL is required")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	pathURL, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	return baseURL.ResolveReference(pathURL).String(), nil
}
