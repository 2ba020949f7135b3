package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/equipfind/equipfind/internal/pkg/logger"
)

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/v1/search", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
}

func TestRequestID(t *testing.T) {
	var seen any
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(logger.RequestIDKey)
	}))

	t.Run("propagates incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
		req.Header.Set(RequestIDHeader, "kiosk-7")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if seen != "kiosk-7" {
			t.Errorf("context id = %v, want kiosk-7", seen)
		}
		if w.Header().Get(RequestIDHeader) != "kiosk-7" {
			t.Error("response header not echoed")
		}
	})

	t.Run("mints when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		id, _ := seen.(string)
		if id == "" || w.Header().Get(RequestIDHeader) != id {
			t.Errorf("minted id = %q, header = %q", id, w.Header().Get(RequestIDHeader))
		}
	})
}

func TestLogging_Observe(t *testing.T) {
	var gotStatus int
	var gotPath string
	observe := func(method, path string, status int, elapsed time.Duration) {
		gotStatus, gotPath = status, path
	}

	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Logging(logger.Discard(), observe),
		RequestID,
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotStatus != http.StatusTeapot {
		t.Errorf("observed status = %d, want 418", gotStatus)
	}
	if gotPath != "/healthz" {
		t.Errorf("observed path = %q", gotPath)
	}
}

func TestCORSWithOrigins(t *testing.T) {
	h := CORSWithOrigins([]string{"https://kiosk.example.org", " https://admin.example.org "})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://kiosk.example.org", "https://kiosk.example.org"},
		{"https://admin.example.org", "https://admin.example.org"},
		{"https://evil.example.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow-origin = %q, want %q", got, tt.want)
			}
		})
	}

	wildcard := CORSWithOrigins([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	wildcard.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("wildcard allow-origin = %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/search", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked to the client")
	}
}
