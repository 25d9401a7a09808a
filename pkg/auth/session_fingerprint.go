package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// SessionFingerprint binds a refresh session to the client that created it.
type SessionFingerprint struct {
	IPAddress string
	UserAgent string
	Hash      string
}

// GenerateFingerprint creates a fingerprint from request metadata.
func GenerateFingerprint(r *http.Request) *SessionFingerprint {
	ip := ClientIP(r)
	ua := r.UserAgent()

	return &SessionFingerprint{
		IPAddress: ip,
		UserAgent: ua,
		Hash:      hashFingerprint(ip, ua),
	}
}

// Validate checks if the current request matches the stored fingerprint.
func (f *SessionFingerprint) Validate(r *http.Request) bool {
	return f.Hash == GenerateFingerprint(r).Hash
}

// DetectReuse reports the first changed component between f and r.
func (f *SessionFingerprint) DetectReuse(r *http.Request) (bool, string) {
	current := GenerateFingerprint(r)

	if f.IPAddress != current.IPAddress {
		return true, fmt.Sprintf("IP address changed from %s to %s", f.IPAddress, current.IPAddress)
	}

	if f.UserAgent != current.UserAgent {
		return true, fmt.Sprintf("User-Agent changed from %s to %s", f.UserAgent, current.UserAgent)
	}

	return false, ""
}

func hashFingerprint(ip, userAgent string) string {
	hash := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(hash[:])
}

// ClientIP extracts the client IP address from the request.
// X-Forwarded-For and X-Real-IP win over RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
