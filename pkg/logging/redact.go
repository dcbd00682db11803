package logging

import (
	"strings"
	"unicode/utf8"
)

const visiblePrefixRunes = 2

// RedactEmail keeps the first two runes of the local part and the domain,
// masking the rest: "alice@example.com" becomes "al****@example.com".
// Malformed addresses and local parts shorter than three runes are returned
// trimmed but otherwise unchanged.
func RedactEmail(s string) string {
	s = strings.TrimSpace(s)
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return s
	}
	if utf8.RuneCountInString(local) <= visiblePrefixRunes {
		return s
	}

	prefix := []rune(local)[:visiblePrefixRunes]
	return string(prefix) + "****@" + domain
}
