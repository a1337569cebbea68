package ratelimit

import "strings"

// keyEscaper escapes the colon delimiter and its own escape character so
// resource and caller strings (opaque byte strings, not restricted
// identifiers) can be embedded in a colon-joined key without ambiguity.
var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// composeKey builds the store key for a (resource, caller) pair:
// "rl:{escaped resource}:{escaped caller}".
func composeKey(resource, caller string) string {
	var b strings.Builder
	b.Grow(len(resource) + len(caller) + 8)
	b.WriteString("rl:")
	b.WriteString(keyEscaper.Replace(resource))
	b.WriteByte(':')
	b.WriteString(keyEscaper.Replace(caller))
	return b.String()
}
