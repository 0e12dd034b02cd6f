package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(12) // burst 2, one token every 5s
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatal("burst should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("other IPs have their own bucket")
	}

	now = now.Add(5 * time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatal("bucket should refill")
	}
}

func TestIPLimiterDisabled(t *testing.T) {
	l := newIPLimiter(0)
	for range 100 {
		if !l.allow("10.0.0.1") {
			t.Fatal("zero rate should not limit")
		}
	}
}

func TestIPLimiterMiddleware(t *testing.T) {
	l := newIPLimiter(6) // burst 1
	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [204 429]", codes)
	}
}
