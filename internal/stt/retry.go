// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     stt
// Description: Retry wrapper for flaky recognition calls
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxnote/voxnote/pkg/core/logging"
)

// RetryConfig bounds the retry behaviour of a RetryTranscriber
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first
	MaxAttempts int

	// BackoffStep is multiplied by the attempt number between attempts
	BackoffStep time.Duration
}

// DefaultRetryConfig returns the default retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffStep: 300 * time.Millisecond,
	}
}

// Backoff returns the delay before the next attempt. The delay grows
// linearly: attempt 1 waits one step, attempt 2 waits two steps.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	return c.BackoffStep * time.Duration(attempt)
}

// RetryTranscriber wraps a Transcriber and retries transient failures.
// Only rate limiting (429) and server errors (5xx) are retried; client
// errors such as a malformed chunk fail immediately.
type RetryTranscriber struct {
	inner Transcriber
	cfg   RetryConfig
	log   *logging.Logger
}

// NewRetryTranscriber wraps inner with the given retry policy
func NewRetryTranscriber(inner Transcriber, cfg RetryConfig) *RetryTranscriber {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryTranscriber{
		inner: inner,
		cfg:   cfg,
		log:   logging.New("stt-retry"),
	}
}

// TranscribeFile transcribes with retries on transient failures
func (r *RetryTranscriber) TranscribeFile(ctx context.Context, path string, prompt string) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		result, err := r.inner.TranscribeFile(ctx, path, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		r.log.Warn("transcription attempt failed",
			"attempt", attempt,
			"max_attempts", r.cfg.MaxAttempts,
			"error", err,
		)

		if !IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(r.cfg.Backoff(attempt)):
		}
	}

	return Result{}, lastErr
}

// Close releases resources of the wrapped transcriber
func (r *RetryTranscriber) Close() error {
	return r.inner.Close()
}

// IsRetryable reports whether a recognition error is worth retrying
func IsRetryable(err error) bool {
	status, ok := httpStatus(err)
	if !ok {
		return false
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// httpStatus extracts the HTTP status code from an API error, if any
func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}

	return 0, false
}
