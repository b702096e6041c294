package audit

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q: missing host", raw)
	}
	return nil
}

const digestLen = 16

// SafeBasename derives a filesystem and object-key friendly name for raw.
// The trailing digest keeps names unique for URLs that sanitize identically.
func SafeBasename(raw string, h Hasher) (string, error) {
	digest, err := h.Hash([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", raw, err)
	}
	if len(digest) > digestLen {
		digest = digest[:digestLen]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return digest, nil
	}
	host := invalidNameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidNameChars.ReplaceAllString(p, "_")
	if len(p) > 80 {
		p = p[:80]
	}
	return fmt.Sprintf("%s_%s_%s", host, p, digest), nil
}
