package strategy

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"go-offline-cache/internal/utils"
)

// HostAllowlist decides which upstream hosts the proxy may reach: the site
// origin, hosts of absolute manifest entries and configured host globs.
type HostAllowlist struct {
	origin   *url.URL
	hosts    map[string]struct{}
	patterns []string
}

// NewHostAllowlist builds the allowlist. Allowed entries are hostnames or
// path.Match globs such as "*.tile.openstreetmap.org".
func NewHostAllowlist(origin *url.URL, manifest, allowed []string) (*HostAllowlist, error) {
	a := &HostAllowlist{origin: origin, hosts: make(map[string]struct{})}
	for _, host := range utils.ManifestHosts(manifest) {
		a.hosts[host] = struct{}{}
	}
	for _, entry := range allowed {
		host := strings.ToLower(strings.TrimSpace(entry))
		if host == "" {
			continue
		}
		if !strings.ContainsAny(host, "*?[") {
			a.hosts[host] = struct{}{}
			continue
		}
		if _, err := path.Match(host, "x"); err != nil {
			return nil, fmt.Errorf("bad allowed host pattern %q: %w", entry, err)
		}
		a.patterns = append(a.patterns, host)
	}
	return a, nil
}

// Allowed reports whether rawURL may be fetched
func (a *HostAllowlist) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if a.origin != nil && utils.SameOrigin(a.origin, u) {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if _, ok := a.hosts[host]; ok {
		return true
	}
	for _, pattern := range a.patterns {
		if ok, _ := path.Match(pattern, host); ok {
			return true
		}
	}
	return false
}
