// Package safeurl validates target URLs before a run may fetch them.
// Internal and loopback destinations are rejected outright.
package safeurl

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrInvalidFormat     = errors.New("invalid URL format")
	ErrUnsupportedScheme = errors.New("only HTTP and HTTPS protocols are allowed")
	ErrBlockedTarget     = errors.New("internal URLs are not allowed")
)

// blockedPrefixes covers loopback, RFC 1918 ranges, link-local and
// unique-local IPv6. Matched against the lowercased hostname.
var blockedPrefixes = []string{
	"127.",
	"10.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"192.168.",
	"0.",
	"169.254.",
	"fc00:",
	"fe80:",
}

var blockedSuffixes = []string{".local", ".internal"}

// Validate parses raw and rejects URLs that point at internal targets.
// The returned URL has its hostname lowercased.
func Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, ErrInvalidFormat
	}
	if blockedHost(host) {
		return nil, ErrBlockedTarget
	}
	return u, nil
}

func blockedHost(host string) bool {
	if host == "localhost" || host == "::1" {
		return true
	}
	for _, p := range blockedPrefixes {
		if strings.HasPrefix(host, p) {
			return true
		}
	}
	for _, s := range blockedSuffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}
