package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
)

func TestClientRateLimiter_SlidingWindow(t *testing.T) {
	limiter := NewClientRateLimiter(2, time.Minute)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if ok, _ := limiter.Allow("10.0.0.1"); !ok {
		t.Fatalf("first request should be allowed")
	}
	if ok, _ := limiter.Allow("10.0.0.1"); !ok {
		t.Fatalf("second request should be allowed")
	}
	ok, retryAfter := limiter.Allow("10.0.0.1")
	if ok {
		t.Fatalf("third request inside the window should be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}

	// Another client has its own budget.
	if ok, _ := limiter.Allow("10.0.0.2"); !ok {
		t.Fatalf("separate client should be allowed")
	}

	// Once the earliest request ages out the client gets budget back.
	now = now.Add(61 * time.Second)
	if ok, _ := limiter.Allow("10.0.0.1"); !ok {
		t.Fatalf("request after window expiry should be allowed")
	}
}

func TestClientRateLimiter_EvictsIdleClients(t *testing.T) {
	limiter := NewClientRateLimiter(2, time.Minute)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if ok, _ := limiter.Allow("10.0.0.1"); !ok {
		t.Fatalf("first request should be allowed")
	}
	if ok, _ := limiter.Allow("10.0.0.2"); !ok {
		t.Fatalf("second client should be allowed")
	}

	// After a full window of silence the first client's entry must not
	// linger in the map, or the limiter grows with every address seen.
	now = now.Add(2 * time.Minute)
	if ok, _ := limiter.Allow("10.0.0.2"); !ok {
		t.Fatalf("active client should still be allowed")
	}

	limiter.mu.Lock()
	_, present := limiter.clients["10.0.0.1"]
	size := len(limiter.clients)
	limiter.mu.Unlock()
	if present {
		t.Fatalf("idle client entry should have been evicted")
	}
	if size != 1 {
		t.Fatalf("expected only the active client tracked, got %d", size)
	}
}

func TestRateLimit_Returns429WithRetryAfter(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(limiter, next)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?state=GA", nil)
	req.RemoteAddr = "203.0.113.7:4455"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "RESOURCE_EXHAUSTED" {
		t.Fatalf("expected RESOURCE_EXHAUSTED, got %v", errorObj["status"])
	}
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(nil, next)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/precomputed", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with nil limiter, got %d", rec.Code)
		}
	}
}

func TestResolveClientIP_HeaderPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	req.RemoteAddr = "192.0.2.9:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")

	if got := resolveClientIP(req); got != "198.51.100.4" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := resolveClientIP(req); got != "192.0.2.9" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}
