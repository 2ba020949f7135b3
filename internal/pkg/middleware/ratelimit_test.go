package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, rps float64, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: rps,
		Burst:             burst,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.RequestsPerSecond != 20 {
		t.Errorf("expected RequestsPerSecond=20, got %f", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 40 {
		t.Errorf("expected Burst=40, got %d", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("expected CleanupInterval=1m, got %v", cfg.CleanupInterval)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 2, 2)
	clientIP := "192.168.1.100"

	if !rl.Allow(clientIP) || !rl.Allow(clientIP) {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow(clientIP) {
		t.Error("expected third request to be denied")
	}

	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(clientIP) {
		t.Error("expected request to be allowed after waiting")
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := newTestLimiter(t, 5, 5)

	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Errorf("client1 request %d should be allowed", i)
		}
		if !rl.Allow("10.0.0.2") {
			t.Errorf("client2 request %d should be allowed", i)
		}
	}

	if rl.Allow("10.0.0.1") {
		t.Error("client1 should be rate limited")
	}
	if rl.Allow("10.0.0.2") {
		t.Error("client2 should be rate limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := newTestLimiter(t, 100, 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ip := fmt.Sprintf("192.168.1.%d", n)
			for j := 0; j < 10; j++ {
				rl.Allow(ip)
			}
		}(i)
	}
	wg.Wait()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 10 {
		t.Errorf("expected 10 tracked clients, got %d", len(rl.clients))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newTestLimiter(t, 2, 2)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/search?q=printer", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestRateLimiter_EvictBefore(t *testing.T) {
	rl := newTestLimiter(t, 100, 100)
	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.2")

	rl.evictBefore(time.Now().Add(-time.Hour))
	rl.mu.Lock()
	kept := len(rl.clients)
	rl.mu.Unlock()
	if kept != 2 {
		t.Errorf("fresh clients evicted: %d left", kept)
	}

	rl.evictBefore(time.Now().Add(time.Hour))
	rl.mu.Lock()
	left := len(rl.clients)
	rl.mu.Unlock()
	if left != 0 {
		t.Errorf("stale clients kept: %d left", left)
	}
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.168.1.100:12345", nil, "192.168.1.100"},
		{"forwarded chain", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"}, "203.0.113.1"},
		{"real ip", "10.0.0.1:12345", map[string]string{"X-Real-IP": "203.0.113.50"}, "203.0.113.50"},
		{"forwarded wins", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "203.0.113.50"}, "203.0.113.1"},
		{"ipv6", "[2001:db8::1]:12345", nil, "[2001:db8::1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
