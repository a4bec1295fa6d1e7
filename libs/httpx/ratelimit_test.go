package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatal("first two requests must pass")
	}
	if send("10.0.0.1") != http.StatusTooManyRequests {
		t.Fatal("third request must be limited")
	}
	if send("10.0.0.2") != http.StatusOK {
		t.Fatal("another client must not share the counter")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	if !rl.allow("10.0.0.1") {
		t.Fatal("first request must pass")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request in window must be limited")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.allow("10.0.0.1") {
		t.Fatal("request after the window must pass")
	}
}

func TestCORSWildcardWithCredentials(t *testing.T) {
	mw := WithCORS(CORSPolicy{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://clinic.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://clinic.example" {
		t.Fatalf("wildcard with credentials must echo the origin, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials header missing")
	}
}
