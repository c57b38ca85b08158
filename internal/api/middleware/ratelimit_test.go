package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func doRequest(rl *RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := NewRateLimiter(0, 2)
	defer rl.Stop()

	assert.Equal(t, http.StatusOK, doRequest(rl, "1.2.3.4:1000").Code)
	assert.Equal(t, http.StatusOK, doRequest(rl, "1.2.3.4:1000").Code)

	rec := doRequest(rl, "1.2.3.4:1000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Stop()

	assert.Equal(t, http.StatusOK, doRequest(rl, "1.2.3.4:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(rl, "1.2.3.4:1000").Code)

	// A different client still has its own budget.
	assert.Equal(t, http.StatusOK, doRequest(rl, "5.6.7.8:1000").Code)
}

func TestRateLimiterSweepDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Stop()

	doRequest(rl, "1.2.3.4:1000")
	doRequest(rl, "5.6.7.8:1000")

	rl.mu.Lock()
	rl.buckets["1.2.3.4:1000"].lastSeen = time.Now().Add(-2 * bucketTTL)
	rl.mu.Unlock()

	rl.sweep(time.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "1.2.3.4:1000")
	assert.Contains(t, rl.buckets, "5.6.7.8:1000")
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	rl.Stop()
	rl.Stop()
}
