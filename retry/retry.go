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


package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/poiesic/imageindex/ai"
)

// Defaults applied by DefaultPolicy.
const (
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = time.Second
)

// Classifier reports whether an error is transient and worth another attempt.
type Classifier func(error) bool

// RateLimited retries provider throttling only. Server errors and network
// failures are surfaced immediately.
func RateLimited(err error) bool {
	return ai.IsRateLimited(err)
}

// Policy controls how Do spaces and bounds its attempts.
type Policy struct {
	// MaxRetries is the number of retryable failures tolerated. The call is made
	// at most MaxRetries times.
	MaxRetries int
	// InitialBackoff is the first sleep. It doubles after every retry.
	InitialBackoff time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0, max). Defaults to a uniform random draw.
	Jitter func(max time.Duration) time.Duration
	// OnRetry is called before every backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)

	Logger *slog.Logger
}

// DefaultPolicy returns a Policy with five retries starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// Validate checks the numeric limits of the policy.
func (p Policy) Validate() error {
	if p.MaxRetries < 1 {
		return errors.Join(ErrInvalidPolicy, errors.New("max retries must be at least one"))
	}
	if p.InitialBackoff <= 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("initial backoff must be positive"))
	}
	return nil
}

type state int

const (
	attempting state = iota
	backingOff
	succeeded
	exhausted
	fatal
)

// Do runs op until it succeeds, fails with an error isRetryable rejects, or
// fails retryably MaxRetries times.
//
// Before retry k (k starting at 1) it sleeps InitialBackoff*2^(k-1) plus a jitter
// in [0, InitialBackoff/2). A non-retryable failure returns *FatalError without
// sleeping. Running out of retries returns *ExhaustedError. Context cancellation
// during a sleep returns the context error.
func Do[T any](ctx context.Context, p Policy, isRetryable Classifier, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}
	if isRetryable == nil {
		isRetryable = RateLimited
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		result  T
		lastErr error
		attempt int
		backoff = p.InitialBackoff
		st      = attempting
	)

	for {
		switch st {
		case attempting:
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			attempt++
			result, lastErr = op(ctx)
			switch {
			case lastErr == nil:
				st = succeeded
			case !isRetryable(lastErr):
				st = fatal
			case attempt >= p.MaxRetries:
				st = exhausted
			default:
				st = backingOff
			}

		case backingOff:
			delay := backoff + jitter(p.InitialBackoff/2)
			logger.Debug("retryable failure, backing off",
				"attempt", attempt, "maxRetries", p.MaxRetries, "delay", delay, "err", lastErr)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
			backoff *= 2
			st = attempting

		case succeeded:
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return result, nil

		case exhausted:
			return zero, &ExhaustedError{Attempts: attempt, Last: lastErr}

		case fatal:
			return zero, &FatalError{Attempt: attempt, Err: lastErr}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
