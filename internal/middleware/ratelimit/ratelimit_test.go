package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := rl.Allow("1.2.3.4"); got != want {
			t.Fatalf("request %d: Allow = %v, want %v", i+1, got, want)
		}
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other client limited")
	}
	if rl.Hits() != 1 {
		t.Fatalf("Hits = %d, want 1", rl.Hits())
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window did not reset")
	}

	now = now.Add(11 * time.Minute)
	if n := rl.cleanup(); n != 2 {
		t.Fatalf("cleanup removed %d, want 2", n)
	}
	if rl.ActiveClients() != 0 {
		t.Fatalf("ActiveClients = %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsConfiguredMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusOK},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusOK},
		{http.MethodGet, http.StatusOK},
	}
	for i, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/api/upload", nil))
		if rr.Code != tt.want {
			t.Fatalf("request %d (%s): status %d, want %d", i+1, tt.method, rr.Code, tt.want)
		}
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "60" {
			t.Errorf("missing Retry-After")
		}
	}
}
