package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRequest(remoteAddr, userAgent string) *http.Request {
	req := httptest.NewRequest("GET", "/auth/refresh", nil)
	req.RemoteAddr = remoteAddr
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req
}

func TestSessionFingerprint_Validate(t *testing.T) {
	fp := GenerateFingerprint(newRequest("192.168.1.1:12345", "Mozilla/5.0"))
	if fp.Hash == "" || fp.IPAddress != "192.168.1.1" {
		t.Fatalf("unexpected fingerprint %+v", fp)
	}

	tests := []struct {
		name       string
		req        *http.Request
		wantValid  bool
		wantReused bool
	}{
		{"same client", newRequest("192.168.1.1:4444", "Mozilla/5.0"), true, false},
		{"different IP", newRequest("10.0.0.1:12345", "Mozilla/5.0"), false, true},
		{"different User-Agent", newRequest("192.168.1.1:12345", "curl/8.0"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fp.Validate(tt.req); got != tt.wantValid {
				t.Errorf("Validate() = %v, want %v", got, tt.wantValid)
			}
			reused, reason := fp.DetectReuse(tt.req)
			if reused != tt.wantReused {
				t.Errorf("DetectReuse() = %v (%s), want %v", reused, reason, tt.wantReused)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"X-Forwarded-For header", map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"}, "192.168.1.1:12345", "203.0.113.1"},
		{"X-Real-IP header", map[string]string{"X-Real-IP": "203.0.113.7"}, "192.168.1.1:12345", "203.0.113.7"},
		{"RemoteAddr only", nil, "192.168.1.1:12345", "192.168.1.1"},
		{"IPv6 RemoteAddr", nil, "[::1]:8080", "::1"},
		{"RemoteAddr without port", nil, "192.168.1.9", "192.168.1.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.remote, "")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.wantIP {
				t.Errorf("ClientIP() = %v, want %v", got, tt.wantIP)
			}
		})
	}
}
