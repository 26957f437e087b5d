package auth

import "strings"

// PublicEndpoints are reachable without a token: health checks and Prometheus scrapes.
var PublicEndpoints = []string{
	"/health",
	"/health/ready",
	"/metrics",
}

// IsPublicEndpoint reports whether path is exactly a public endpoint,
// ignoring a trailing slash.
func IsPublicEndpoint(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, endpoint := range PublicEndpoints {
		if path == endpoint {
			return true
		}
	}
	return false
}
