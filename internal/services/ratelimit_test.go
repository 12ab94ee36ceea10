package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "resource exhausted", err: errors.New("rpc error: code = ResourceExhausted desc = Resource exhausted"), expected: true},
		{name: "http 429", err: errors.New("HTTP 429: Too Many Requests"), expected: true},
		{name: "rate limit", err: errors.New("rate limit exceeded"), expected: true},
		{name: "quota", err: errors.New("Quota exceeded for this project"), expected: true},
		{name: "wrapped api error", err: fmt.Errorf("failed to generate content: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}), expected: true},
		{name: "other api error", err: genai.APIError{Code: 500, Message: "internal"}, expected: false},
		{name: "timeout", err: errors.New("connection timeout"), expected: false},
		{name: "json", err: errors.New("failed to parse JSON"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRateLimitError(tt.err))
		})
	}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	original := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = original })
	return &slept
}

func TestWaitFor(t *testing.T) {
	slept := stubSleep(t)

	assert.NoError(t, waitFor(context.Background(), 0))
	assert.Empty(t, *slept)

	assert.NoError(t, waitFor(context.Background(), 2*time.Second))
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestWaitForCancelled(t *testing.T) {
	release := make(chan struct{})
	original := sleep
	sleep = func(time.Duration) { <-release }
	t.Cleanup(func() {
		close(release)
		sleep = original
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, waitFor(ctx, time.Hour), context.Canceled)
}
