// Package pathutil keeps request paths usable as metric labels.
package pathutil

import (
	"regexp"
	"strings"
)

type pathPattern struct {
	pattern  *regexp.Regexp
	template string
}

var pathPatterns = []pathPattern{
	{regexp.MustCompile(`^/cases/[^/]+/notifications$`), "/cases/:id/notifications"},
	{regexp.MustCompile(`^/cases/[^/]+$`), "/cases/:id"},
}

// knownPaths are reported verbatim; anything else collapses to "other".
var knownPaths = map[string]bool{
	"/notification-types": true,
	"/health":             true,
	"/health/ready":       true,
	"/health/channels":    true,
	"/metrics":            true,
}

// NormalizePath maps a request path to a bounded set of route templates.
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	if knownPaths[path] {
		return path
	}
	return "other"
}
