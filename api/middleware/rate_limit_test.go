package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type counterStore struct {
	counts map[string]int64
	err    error
}

func (c *counterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *counterStore) RateLimitKey(scope string) string {
	return "rl:" + scope
}

func TestRateLimitBlocksAfterLimitPerUser(t *testing.T) {
	store := &counterStore{}
	handler := RateLimit(NewRateLimitPolicy("transitions", time.Minute, 2), store, nil)(okHandler())

	send := func(userID int64) int {
		req := httptest.NewRequest(http.MethodPost, acceptPath, nil)
		req = req.WithContext(WithUser(req.Context(), userID, "delivery_partner"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send(3); code != http.StatusOK {
		t.Fatalf("first request: expected 200 got %d", code)
	}
	if code := send(3); code != http.StatusOK {
		t.Fatalf("second request: expected 200 got %d", code)
	}
	if code := send(3); code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429 got %d", code)
	}
	if code := send(4); code != http.StatusOK {
		t.Fatalf("other user: expected 200 got %d", code)
	}
	if _, ok := store.counts["rl:transitions:user:3"]; !ok {
		t.Fatalf("expected per-user key, got %v", store.counts)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	store := &counterStore{}
	handler := RateLimit(NewRateLimitPolicy("", time.Minute, 5), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if store.counts["rl:default:ip:203.0.113.9"] != 1 {
		t.Fatalf("expected ip scoped counter, got %v", store.counts)
	}
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := &counterStore{err: errors.New("redis down")}
	handler := RateLimit(NewRateLimitPolicy("transitions", time.Minute, 1), store, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("off", 0, 0), nil, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
