package dispatch

import "strings"

// ValidateLink normalizes a call-to-action link. Links that do not start with
// "http" or "#" get an https:// prefix. It does not validate URL syntax.
func ValidateLink(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "http") || strings.HasPrefix(s, "#") {
		return s, true
	}
	return "https://" + s, true
}
