package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newLimitedHandler(store *rateLimiterStore) echo.HandlerFunc {
	return rateLimit(store)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimitAndRefills(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}, clock.Now)
	handler := newLimitedHandler(store)
	e := echo.New()

	for i := 0; i < 2; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry != 1 {
		t.Errorf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	clock.now = clock.now.Add(time.Second)
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := handler(c); err != nil {
		t.Errorf("expected a refilled token after one second, got %v", err)
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	handler := newLimitedHandler(newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, clock.Now))
	e := echo.New()

	call := func(user string) error {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", user)
		return handler(c)
	}

	if err := call("analyst-a"); err != nil {
		t.Fatalf("analyst-a first request: expected no error, got %v", err)
	}
	if err := call("analyst-a"); err == nil {
		t.Fatal("analyst-a second request: expected rate limit error")
	}
	if err := call("analyst-b"); err != nil {
		t.Fatalf("analyst-b first request: expected no error, got %v", err)
	}
}

func TestRateLimiterStore_SweepsIdleBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute}, clock.Now)

	store.allow("ip:10.0.0.1")
	store.allow("ip:10.0.0.2")
	if store.size() != 2 {
		t.Fatalf("expected 2 buckets, got %d", store.size())
	}

	clock.now = clock.now.Add(2 * time.Minute)
	store.allow("ip:10.0.0.3")
	if store.size() != 1 {
		t.Errorf("expected idle buckets to be swept, got %d", store.size())
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 50 || cfg.BurstSize != 100 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestTokenBucket_RetryAfterWithZeroRate(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(0, 1, now)
	b.take(now)
	if ok, retry := b.take(now); ok || retry != 1 {
		t.Errorf("expected denial with retry 1, got %v %d", ok, retry)
	}
}
