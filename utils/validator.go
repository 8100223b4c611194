package utils

import (
	"net"
	"net/url"
	"strings"
)

// maxTextContentLength bounds plain-text slot content.
const maxTextContentLength = 2048

// IsHTTPURL reports whether content parses as an absolute http(s) URL. The
// scan endpoint redirects to URL content and renders anything else as text.
func IsHTTPURL(content string) bool {
	parsed, err := url.ParseRequestURI(content)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ValidateSlotContent checks a slot payload. URL content must be a safe
// public http(s) URL; anything else is accepted as opaque text up to a size
// cap.
func ValidateSlotContent(content string) error {
	if content == "" {
		return ErrEmptyURL
	}
	if IsHTTPURL(content) {
		return ValidateURL(content)
	}
	if len(content) > maxTextContentLength {
		return ErrContentTooLong
	}
	return nil
}

// ValidateURL checks if the provided URL is valid and safe as a redirect
// destination.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Host == "" {
		return ErrEmptyHost
	}

	hostname := parsedURL.Hostname()

	// Block localhost and loopback addresses
	if isLocalhost(hostname) {
		return ErrLocalhostNotAllowed
	}

	// Block private IP addresses
	if isPrivateIP(hostname) {
		return ErrPrivateIPNotAllowed
	}

	return nil
}

// isLocalhost checks if the hostname is localhost or loopback
func isLocalhost(hostname string) bool {
	localhost := []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}
	hostname = strings.ToLower(hostname)

	for _, local := range localhost {
		if hostname == local {
			return true
		}
	}

	return false
}

// isPrivateIP checks if the hostname is a private IP address
func isPrivateIP(hostname string) bool {
	ip := net.ParseIP(hostname)
	if ip == nil {
		// Hostnames are allowed; only literal private IPs are blocked.
		return false
	}

	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16", // Link-local
		"fc00::/7",       // IPv6 ULA
		"fe80::/10",      // IPv6 Link-local
	}

	for _, cidr := range privateRanges {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(ip) {
			return true
		}
	}

	return false
}
