package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:51234", "", "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", "", "203.0.113.7"},
		{"single forwarded hop", "10.0.0.1:80", "198.51.100.4", "198.51.100.4"},
		{"multiple forwarded hops", "10.0.0.1:80", "198.51.100.4, 10.0.0.2", "198.51.100.4"},
		{"ipv6 remote addr", "[2001:db8::1]:443", "", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"hello"}`))
	rec := httptest.NewRecorder()

	if err := DecodeJSON(rec, req, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Title != "hello" {
		t.Errorf("expected title hello, got %q", dst.Title)
	}
}

func TestDecodeJSON_InvalidBody(t *testing.T) {
	var dst map[string]any
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	if err := DecodeJSON(rec, req, &dst); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	var dst map[string]string
	body := `{"value":"` + strings.Repeat("a", maxJSONBodyBytes+1) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	if err := DecodeJSON(rec, req, &dst); err == nil {
		t.Fatal("expected error for oversized body")
	}
}
