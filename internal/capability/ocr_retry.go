package capability

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// RetryConfig mirrors the teacher's DefaultRetryConfig: bounded attempts
// with exponential backoff, tuned for Gemini's rate-limit behavior.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          8 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// categorizeError classifies a Gemini SDK error the way the teacher's
// categorizeGeminiError does: structured googleapi.Error codes first,
// falling back to string matching for errors the SDK doesn't wrap.
func categorizeError(err error) *BackendError {
	if err == nil {
		return nil
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch {
		case gErr.Code == 429:
			return &BackendError{Category: "rate_limit", Retryable: true, Err: err}
		case gErr.Code >= 500:
			return &BackendError{Category: "server_error", Retryable: true, Err: err}
		case gErr.Code == 400, gErr.Code == 401, gErr.Code == 403, gErr.Code == 404, gErr.Code == 413:
			return &BackendError{Category: "bad_request", Retryable: false, Err: err}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return &BackendError{Category: "rate_limit", Retryable: true, Err: err}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return &BackendError{Category: "timeout", Retryable: true, Err: err}
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return &BackendError{Category: "network", Retryable: true, Err: err}
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "permission"):
		return &BackendError{Category: "unauthorized", Retryable: false, Err: err}
	}
	return &BackendError{Category: "unknown", Retryable: true, Err: err}
}

// withRetry runs fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts and doubling the delay specifically for
// rate-limit errors, exactly as the teacher's callGeminiWithRetry does.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() (string, error)) (string, error) {
	delay := cfg.InitialDelay
	var lastErr *BackendError

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		text, err := fn()
		if err == nil {
			return text, nil
		}

		be := categorizeError(err)
		lastErr = be
		if !be.Retryable || attempt == cfg.MaxAttempts {
			return "", be
		}

		wait := delay
		if be.Category == "rate_limit" {
			wait *= 2
		}
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
	}
	return "", lastErr
}
