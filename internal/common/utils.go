package common

import "strings"

// HasAny returns true if s contains any of the non-empty substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Redact replaces every occurrence of the non-empty secrets in s.
func Redact(s string, secrets ...string) string {
	if !HasAny(s, secrets...) {
		return s
	}
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "[REDACTED]")
		}
	}
	return s
}
