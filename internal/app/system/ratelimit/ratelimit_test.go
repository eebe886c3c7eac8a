package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Window(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("u1") || !l.Allow("u1") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("u1") {
		t.Error("third request in the window should be limited")
	}
	if !l.Allow("u2") {
		t.Error("keys are limited independently")
	}
	if got := l.Remaining("u1"); got != 0 {
		t.Errorf("Remaining: got %d, want 0", got)
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("u1") {
		t.Error("a new window should allow again")
	}

	l.Reset("u1")
	if got := l.Remaining("u1"); got != 2 {
		t.Errorf("Remaining after Reset: got %d, want 2", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	h := l.Middleware(func(r *http.Request) string { return r.Header.Get("X-User") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		user string
		want int
	}{
		{"a", http.StatusNoContent},
		{"a", http.StatusTooManyRequests},
		{"", http.StatusNoContent},
		{"", http.StatusNoContent},
	}
	for i, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-User", tt.user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("request %d: got %d, want %d", i, rec.Code, tt.want)
		}
	}
}
