package ratelimiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name    string
		rps     uint
		burst   uint
		allowed int
	}{
		{name: "burst of five", rps: 1, burst: 5, allowed: 5},
		{name: "zero burst admits one", rps: 1, burst: 0, allowed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.rps, tt.burst)
			for i := 0; i < tt.allowed; i++ {
				assert.True(t, limiter.Allow(), "request %d should fit the burst", i)
			}
			assert.False(t, limiter.Allow(), "bucket should be empty")
		})
	}
}

func TestUnlimited(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 10_000; i++ {
		require.True(t, limiter.Allow())
	}
}

func TestWaitHonorsContext(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestMiddleware(t *testing.T) {
	limiter := New(1, 2)
	limited := 0

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), func() { limited++ })

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fs", nil))
		codes[i] = rec.Code
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, limited)
}
