package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Fingerprint derives an opaque per-visitor identifier from the client IP
// and user agent. Two visitors behind the same NAT with identical browsers
// collide; that is an accepted approximation for first/return routing.
func Fingerprint(ip, userAgent string) string {
	hash := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(hash[:])[:16]
}

// ClientIP extracts the originating client IP, preferring proxy headers over
// the socket address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the client
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
