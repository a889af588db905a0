// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retry provides the bounded retry policy applied to calls into
// external collaborators (embedding service, document search).
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy describes how a collaborator call is retried.
// The zero value is invalid; start from DefaultPolicy.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration
	// CallTimeout bounds each individual attempt. Zero means no per-call bound.
	CallTimeout time.Duration
}

// DefaultPolicy retries five times with exponential backoff from 2s to 60s,
// each attempt bounded to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		CallTimeout: 30 * time.Second,
	}
}

// Validate checks the policy for usable values.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.CallTimeout < 0 {
		return ErrInvalidDelay
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.BaseDelay {
		return ErrInvalidDelay
	}
	return nil
}

// Backoff returns the wait after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs operation until it succeeds, the attempts are exhausted, the
// error is Permanent, or ctx ends. Returns the error from the last attempt
// if all attempts fail.
func (p Policy) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.attempt(ctx, operation)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		// Sleep with context awareness
		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func (p Policy) attempt(ctx context.Context, operation func(ctx context.Context) error) error {
	if p.CallTimeout <= 0 {
		return operation(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()
	return operation(callCtx)
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, operation func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := operation(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
