package validation

import "strings"

// MaxSlugLength bounds generated slugs so suffixes still fit the column.
const MaxSlugLength = 150

// GenerateSlug lowercases text and collapses every run of characters outside
// [a-z0-9] into a single hyphen. Leading and trailing hyphens are dropped.
func GenerateSlug(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingHyphen := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}
