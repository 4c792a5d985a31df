package llm

import (
	"context"
	"errors"
	"time"

	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
	"github.com/smartfarm/advisor/internal/middleware"
)

func observeProviderOperation(ctx context.Context, provider string, operation string, call func() (CallResult, error)) (CallResult, error) {
	started := time.Now()
	requestID := middleware.GetRequestIDFromContext(ctx)
	if operation == "" {
		operation = "generate"
	}

	logx.Debug().
		Str("request_id", requestID).
		Str("component", "provider").
		Str("provider", provider).
		Str("operation", operation).
		Msg("provider call start")

	result, err := call()

	status := "success"
	errorCategory := "none"
	if err != nil {
		status = "error"
		errorCategory = providerErrorCategory(err)
	}

	duration := time.Since(started)
	metrics.RecordProviderCall(provider, operation, status, errorCategory, duration)

	event := logx.Info()
	if err != nil {
		event = logx.Warn().Err(err)
	}
	event.
		Str("request_id", requestID).
		Str("component", "provider").
		Str("provider", provider).
		Str("operation", operation).
		Str("status", status).
		Str("error_category", errorCategory).
		Str("finish_reason", string(result.FinishReason())).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("provider call finished")

	return result, err
}

func providerErrorCategory(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyPrompt):
		return "invalid_request"
	}

	var httpErr *providerHTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.statusCode == 429:
			return "rate_limited"
		case httpErr.statusCode == 401 || httpErr.statusCode == 403:
			return "auth"
		case httpErr.statusCode >= 500:
			return "upstream"
		default:
			return "invalid_request"
		}
	}

	if shouldRetryError(err) {
		return "transient"
	}
	return "unknown"
}
