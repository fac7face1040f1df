package research

import (
	"strings"
	"unicode"
)

// DeriveSlug maps a title to its URL-safe identifier: lower-case, each run of
// whitespace collapsed to a single hyphen, every other character outside
// [a-z0-9-] dropped. Pure and total; a title with nothing in [a-z0-9-] yields
// an empty slug, which Draft.Validate rejects before it reaches the store.
func DeriveSlug(title string) string {
	lowered := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lowered))

	inWhitespace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !inWhitespace {
				b.WriteByte('-')
				inWhitespace = true
			}
			continue
		}
		inWhitespace = false

		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
