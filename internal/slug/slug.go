// Package slug provides helper functions that turn human-readable text into
// URL-safe "slugs", and that generate record IDs.
package slug

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength leaves room for a numeric suffix under the 100-rune URL segment
// limit the public site routes with.
const MaxLength = 96

// Normalize lowercases seed, folds accented letters to their base form and
// collapses every run of characters outside [a-z0-9] into a single hyphen.
// It returns "" when nothing usable is left.
func Normalize(seed string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), seed)
	if err != nil {
		folded = seed
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastWasDash := true
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasDash = false
			continue
		}
		if !lastWasDash {
			b.WriteByte('-')
			lastWasDash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// WithSuffix appends the collision counter to base.
func WithSuffix(base string, suffix int) string {
	return fmt.Sprintf("%s-%d", base, suffix)
}

// NewID returns a record ID scoped to rowType, e.g. "posts_0b5c...".
func NewID(rowType string) string {
	return fmt.Sprintf("%s_%s", rowType, uuid.NewString())
}
