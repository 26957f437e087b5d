package respond

import (
	"regexp"
)

var (
	// Authorization header values echoed back in provider error messages.
	authHeaderPattern = regexp.MustCompile(`\b(Basic|Bearer|Key)\s+[A-Za-z0-9._~+/=-]+`)
	// OneSignal v2 REST API keys.
	oneSignalKeyPattern = regexp.MustCompile(`os_v2_app_[a-z0-9]+`)
	// Credentials embedded in postgres, redis and nats URLs.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = authHeaderPattern.ReplaceAllString(msg, "$1 ****")
	msg = oneSignalKeyPattern.ReplaceAllString(msg, "os_v2_app_****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
