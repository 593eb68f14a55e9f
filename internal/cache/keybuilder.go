package cache

import (
	"crypto/md5"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct{}

// NewKeyBuilder creates a new KeyBuilder instance
func NewKeyBuilder() interfaces.KeyBuilder {
	return &KeyBuilderImpl{}
}

// Build creates a cache key for a request descriptor (method + URL).
// The fragment never takes part in matching; the query string does.
func (kb *KeyBuilderImpl) Build(req *models.Request) (string, error) {
	if req == nil {
		return "", errors.New("request cannot be nil")
	}

	if req.URL == "" {
		return "", errors.New("request URL cannot be empty")
	}

	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return "", err
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}

	hasher := md5.New()
	hasher.Write([]byte(normalized))

	// Create final cache key: method:urlHash
	return fmt.Sprintf("%s:%x", method, hasher.Sum(nil)), nil
}

// NormalizeURL returns the absolute URL with its fragment removed and the
// scheme and host lowercased
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URL: %w", err)
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("request URL must be absolute: %q", rawURL)
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}
