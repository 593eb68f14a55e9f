package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go-offline-cache/internal/models"
)

// ErrRequestTooLarge is returned when a request body exceeds the allowed size
var ErrRequestTooLarge = errors.New("request body too large")

// ParseRequest converts an incoming proxy request into a fetch request.
// Absolute-form targets keep their own origin; origin-form targets are
// resolved against origin.
func ParseRequest(r *http.Request, origin *url.URL, maxBodyBytes int64) (*models.Request, error) {
	target := ResolveURL(r.URL, origin)
	if target == "" {
		return nil, fmt.Errorf("cannot resolve request target %q", r.URL.String())
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		reader := io.Reader(r.Body)
		if maxBodyBytes > 0 {
			reader = io.LimitReader(r.Body, maxBodyBytes+1)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if maxBodyBytes > 0 && int64(len(data)) > maxBodyBytes {
			return nil, ErrRequestTooLarge
		}
		if len(data) > 0 {
			body = data
		}
	}

	return models.NewRequest(r.Method, target, r.Header.Clone(), body), nil
}

// ResolveURL returns the absolute URL a request targets
func ResolveURL(u *url.URL, origin *url.URL) string {
	if u == nil {
		return ""
	}
	if u.IsAbs() && u.Host != "" {
		out := *u
		out.Fragment = ""
		return out.String()
	}
	if origin == nil {
		return ""
	}
	out := *origin
	out.Path = u.Path
	out.RawPath = u.RawPath
	out.RawQuery = u.RawQuery
	out.Fragment = ""
	if out.Path == "" {
		out.Path = "/"
	}
	return out.String()
}

// SameOrigin reports whether both URLs share scheme, host and port
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return "443"
	case "http", "ws":
		return "80"
	}
	return ""
}

// NamespaceHeader names the cache generation that served a response
const NamespaceHeader = "X-Offline-Cache-Namespace"

// WriteResponse copies a fetched or cached response onto the wire
func WriteResponse(w http.ResponseWriter, resp *models.Response, namespace string) error {
	body, err := resp.Body()
	if err != nil {
		return err
	}

	header := w.Header()
	for k, vv := range resp.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	if namespace != "" {
		header.Set(NamespaceHeader, namespace)
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		_, err = w.Write(body)
	}
	return err
}

// ManifestHosts returns the lowercased hosts of absolute manifest entries
func ManifestHosts(manifest []string) []string {
	var hosts []string
	seen := make(map[string]struct{})
	for _, entry := range manifest {
		u, err := url.Parse(entry)
		if err != nil || !u.IsAbs() || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}
