package safeurl_test

import (
	"errors"
	"testing"

	"autoqa/internal/safeurl"
)

func TestValidateAccepts(t *testing.T) {
	for _, raw := range []string{
		"https://example.com",
		"http://example.com/login?next=/home",
		"https://shop.example.co.uk:8443/cart",
		"https://93.184.216.34/",
	} {
		u, err := safeurl.Validate(raw)
		if err != nil {
			t.Fatalf("Validate(%q): %v", raw, err)
		}
		if u.Hostname() == "" {
			t.Fatalf("Validate(%q): empty host", raw)
		}
	}
}

func TestValidateRejectsScheme(t *testing.T) {
	for _, raw := range []string{
		"ftp://example.com",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"gopher://example.com",
	} {
		if _, err := safeurl.Validate(raw); !errors.Is(err, safeurl.ErrUnsupportedScheme) {
			t.Fatalf("Validate(%q) = %v, want unsupported scheme", raw, err)
		}
	}
}

func TestValidateRejectsInternalTargets(t *testing.T) {
	for _, raw := range []string{
		"http://localhost",
		"http://localhost:8080/admin",
		"http://LOCALHOST/",
		"http://127.0.0.1",
		"http://10.0.0.5/api",
		"http://172.16.1.1",
		"http://172.31.255.254",
		"http://192.168.1.1",
		"http://0.0.0.0",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]:9000",
		"http://[fc00::1]",
		"http://[fe80::1]",
		"http://intranet.local",
		"http://db.internal/health",
	} {
		if _, err := safeurl.Validate(raw); !errors.Is(err, safeurl.ErrBlockedTarget) {
			t.Fatalf("Validate(%q) = %v, want blocked target", raw, err)
		}
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"http://",
		"://missing-scheme",
		"http://%zz",
	} {
		if _, err := safeurl.Validate(raw); err == nil {
			t.Fatalf("Validate(%q) succeeded, want error", raw)
		}
	}
}
