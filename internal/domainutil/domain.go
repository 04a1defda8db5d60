package domainutil

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"
)

// Normalize canonicalizes a user-supplied hostname:
//   - lowercase, trimmed
//   - trailing dot removed
//   - port stripped (example.com:443)
//   - IPs rejected (IPv4/IPv6)
//   - wildcard and illegal characters rejected
func Normalize(host string) (string, error) {
	host = strings.TrimSpace(host)

	if host == "" {
		return "", fmt.Errorf("domain must not be empty")
	}

	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ".")

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if host == "" {
		return "", fmt.Errorf("domain must not be empty after normalization")
	}

	if net.ParseIP(host) != nil {
		return "", fmt.Errorf("IP address is not allowed as domain: %s", host)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		inner := host[1 : len(host)-1]
		if net.ParseIP(inner) != nil {
			return "", fmt.Errorf("IP address is not allowed as domain: %s", host)
		}
	}

	for i := 0; i < len(host); {
		r, size := utf8.DecodeRuneInString(host[i:])
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-') {
			return "", fmt.Errorf("domain contains invalid character: %c in %s", r, host)
		}
		i += size
	}

	if strings.HasPrefix(host, ".") || strings.HasPrefix(host, "-") {
		return "", fmt.Errorf("domain must not start with '.' or '-': %s", host)
	}

	if !strings.Contains(host, ".") {
		return "", fmt.Errorf("domain must contain at least one dot: %s", host)
	}

	return host, nil
}

// EffectiveApex returns the registrable apex for a hostname using the
// public suffix list, e.g. "links.example.com" -> "example.com".
func EffectiveApex(domain string) (string, error) {
	apex, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return "", fmt.Errorf("failed to determine apex for %s: %w", domain, err)
	}
	return apex, nil
}

// SubdomainLabel extracts the subdomain part of a hostname relative to
// its apex, the label a user enters at their DNS provider.
//
// Examples:
//   - "links.example.com" -> "links"
//   - "a.b.example.com"   -> "a.b"
//   - "example.com"       -> "@" (apex itself)
func SubdomainLabel(domain string) (string, error) {
	apex, err := EffectiveApex(domain)
	if err != nil {
		return "", err
	}
	if domain == apex {
		return "@", nil
	}
	suffix := "." + apex
	if strings.HasSuffix(domain, suffix) {
		return strings.TrimSuffix(domain, suffix), nil
	}
	return domain, nil
}
