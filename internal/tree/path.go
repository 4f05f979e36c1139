// Package tree converts flat catalog rows into the nested trees served to the UI.
package tree

import "strings"

// Delimiter separates the segments of a catalog path and of entity tree keys.
const Delimiter = "/"

// scopeDepth is the number of leading path segments taken by domain and sub-domain.
const scopeDepth = 2

// ParsePath splits a catalog path and drops the domain and sub-domain segments.
// Paths with fewer than three segments have no hierarchy below the sub-domain
// and yield an empty result.
func ParsePath(path string) []string {
	parts := strings.Split(path, Delimiter)
	if len(parts) <= scopeDepth {
		return []string{}
	}
	return parts[scopeDepth:]
}

// parentKey returns key with its last segment removed.
// e.g. "通信/无线通信/5G/毫米波" -> "通信/无线通信/5G"
func parentKey(key string) string {
	if i := strings.LastIndex(key, Delimiter); i >= 0 {
		return key[:i]
	}
	return ""
}
