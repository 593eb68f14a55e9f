package models

import (
	"fmt"
	"strings"
)

// Generation identifies one cache generation: its namespace and precache manifest
type Generation struct {
	Name     string
	Version  string
	Manifest []string
}

// Namespace returns the cache namespace identifier, e.g. "pp-cloud-media-v1.0.10"
func (g Generation) Namespace() string {
	return NamespaceID(g.Name, g.Version)
}

// SameManifest reports whether both generations precache the same URLs in the same order
func (g Generation) SameManifest(other Generation) bool {
	if len(g.Manifest) != len(other.Manifest) {
		return false
	}
	for i := range g.Manifest {
		if g.Manifest[i] != other.Manifest[i] {
			return false
		}
	}
	return true
}

// NamespaceID builds the namespace identifier for a name and a semantic version
func NamespaceID(name, version string) string {
	return fmt.Sprintf("%s-v%s", name, strings.TrimPrefix(version, "v"))
}
