package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/smartfarm/advisor/internal/config"
)

const (
	defaultLLMTimeout    = 30 * time.Second
	defaultLLMMaxRetries = 2
	maxLLMMaxRetries     = 5
	retryBaseDelay       = 200 * time.Millisecond
)

type runtimePolicy struct {
	timeout    time.Duration
	maxRetries int
}

type providerHTTPError struct {
	provider   string
	statusCode int
	message    string
}

func (e *providerHTTPError) Error() string {
	if strings.TrimSpace(e.message) == "" {
		return fmt.Sprintf("%s request failed with status %d", e.provider, e.statusCode)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.provider, e.statusCode, e.message)
}

func runtimePolicyFromConfig(cfg config.LLMConfig) runtimePolicy {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultLLMMaxRetries
	}
	if maxRetries > maxLLMMaxRetries {
		maxRetries = maxLLMMaxRetries
	}

	return runtimePolicy{
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// run calls attempt until it succeeds, returns a non-retryable error or the
// retry budget is spent. Each attempt gets its own timeout.
func (p runtimePolicy) run(ctx context.Context, attempt func(ctx context.Context) (CallResult, error)) (CallResult, error) {
	totalAttempts := p.maxRetries + 1
	var lastErr error
	for i := 0; i < totalAttempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		result, err := attempt(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return CallResult{}, err
		}
		if !shouldRetryError(err) || i == totalAttempts-1 {
			return CallResult{}, err
		}
		if waitErr := waitForBackoff(ctx, i); waitErr != nil {
			return CallResult{}, waitErr
		}
	}
	return CallResult{}, lastErr
}

func shouldRetryHTTPStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}

func shouldRetryError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyPrompt) {
		return false
	}

	var httpErr *providerHTTPError
	if errors.As(err, &httpErr) {
		return shouldRetryHTTPStatus(httpErr.statusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	message := strings.ToLower(err.Error())
	retryableTokens := []string{
		"timeout",
		"temporarily unavailable",
		"connection reset",
		"connection refused",
		"broken pipe",
		"eof",
		"429",
		"500",
		"502",
		"503",
		"504",
	}
	for _, token := range retryableTokens {
		if strings.Contains(message, token) {
			return true
		}
	}

	return false
}

func waitForBackoff(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << attempt
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
