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
	"errors"
	"fmt"
)

var (
	// ErrExhaustedRetries is returned when every allowed retry failed with a retryable error.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrFatal is returned when an operation fails with a non-retryable error.
	ErrFatal = errors.New("fatal error")

	// ErrInvalidPolicy is returned when MaxRetries is below one or InitialBackoff is not positive.
	ErrInvalidPolicy = errors.New("invalid retry policy")
)

// ExhaustedError wraps the last retryable failure once the retry budget is spent.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhaustedRetries, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhaustedRetries, e.Last}
}

// FatalError wraps a failure the classifier rejected as non-retryable.
type FatalError struct {
	Attempt int
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s on attempt %d: %v", ErrFatal, e.Attempt, e.Err)
}

func (e *FatalError) Unwrap() []error {
	return []error{ErrFatal, e.Err}
}
