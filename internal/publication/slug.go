package publication

import (
	"strconv"
	"strings"
)

// BaseSlug keeps only ASCII letters and digits of title, lowercased.
func BaseSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// Slug returns the candidate identifier for base with disambiguation suffix n.
func Slug(base string, n int) string {
	return base + strconv.Itoa(n)
}
