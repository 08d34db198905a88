package detect

import (
	"net"
	"path/filepath"
	"strings"
)

// Built-in sensitive path fragments: credential stores, key material, and
// environment files an agent has no business touching. Matching is
// case-insensitive on the basename or any path component.
var builtinSensitiveFragments = []string{
	".ssh/",
	".aws/",
	".gnupg/",
	".kube/config",
	".docker/config.json",
	".netrc",
	".npmrc",
	".pypirc",
	"/etc/shadow",
	"/etc/sudoers",
	"id_rsa",
	"id_ed25519",
	"id_ecdsa",
	"credentials.json",
	"service-account",
	"secrets.yaml",
	"secrets.yml",
}

// Basename globs applied in addition to the fragments.
var builtinSensitiveGlobs = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*_history",
}

// sensitiveMatcher decides whether a file target is credential material.
type sensitiveMatcher struct {
	fragments []string
	globs     []string
}

// newSensitiveMatcher joins the built-in set with user-configured globs.
func newSensitiveMatcher(extra []string) *sensitiveMatcher {
	return &sensitiveMatcher{
		fragments: builtinSensitiveFragments,
		globs:     append(append([]string{}, builtinSensitiveGlobs...), extra...),
	}
}

// Match reports whether the path names sensitive material.
func (m *sensitiveMatcher) Match(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(filepath.ToSlash(path))

	for _, frag := range m.fragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}

	base := filepath.Base(lower)
	for _, glob := range m.globs {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
	}
	return false
}

// hostSet holds approved network destinations. Matching is by exact host
// or any parent domain (api.example.com matches an approved example.com).
type hostSet struct {
	hosts map[string]struct{}
}

func newHostSet(hosts []string) *hostSet {
	s := &hostSet{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		s.hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return s
}

// Contains reports whether the destination host is approved.
func (s *hostSet) Contains(host string) bool {
	host = strings.ToLower(host)
	if _, ok := s.hosts[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
		if _, ok := s.hosts[host]; ok {
			return true
		}
	}
}

// hostOf extracts the host (no port) from a URL or host:port target.
func hostOf(target string) string {
	t := target
	if idx := strings.Index(t, "://"); idx >= 0 {
		t = t[idx+3:]
	}
	if idx := strings.IndexAny(t, "/?#"); idx >= 0 {
		t = t[:idx]
	}
	if at := strings.LastIndexByte(t, '@'); at >= 0 {
		t = t[at+1:]
	}
	if host, _, err := net.SplitHostPort(t); err == nil {
		return host
	}
	return t
}

// portOf extracts the port from a URL or host:port target; "" when absent.
func portOf(target string) string {
	t := target
	if idx := strings.Index(t, "://"); idx >= 0 {
		t = t[idx+3:]
	}
	if idx := strings.IndexAny(t, "/?#"); idx >= 0 {
		t = t[:idx]
	}
	if _, port, err := net.SplitHostPort(t); err == nil {
		return port
	}
	return ""
}
