package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError_RateLimited(t *testing.T) {
	throttled := &StatusError{Provider: "vision", StatusCode: 429, Body: "slow down"}
	assert.True(t, IsRateLimited(throttled))
	assert.True(t, IsRateLimited(fmt.Errorf("caption: %w", throttled)))
	assert.Equal(t, "vision: unexpected status 429: slow down", throttled.Error())

	for _, code := range []int{400, 401, 404, 500, 503} {
		err := &StatusError{Provider: "vision", StatusCode: code}
		assert.False(t, IsRateLimited(err), "status %d must not be rate limited", code)
	}
}

func TestIsRateLimited_Sentinel(t *testing.T) {
	assert.True(t, IsRateLimited(ErrRateLimited))
	assert.True(t, IsRateLimited(fmt.Errorf("%w: 429 Too Many Requests", ErrRateLimited)))
	assert.False(t, IsRateLimited(errors.New("connection reset")))
	assert.False(t, IsRateLimited(nil))
}
