package article

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const slugMaxLength = 50

// Slug derives a URL slug from an article title: lowercased, everything
// outside Cyrillic letters, Latin letters, digits, whitespace and hyphens
// stripped, whitespace runs collapsed to single hyphens, truncated to 50
// runes. Slugs are not guaranteed to be unique across articles.
func Slug(title string) string {
	lowered := cases.Lower(language.Russian).String(title)

	var stripped strings.Builder
	for _, r := range lowered {
		switch {
		case r >= 'а' && r <= 'я' || r == 'ё':
			stripped.WriteRune(r)
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-':
			stripped.WriteRune(r)
		case unicode.IsSpace(r):
			stripped.WriteRune(' ')
		}
	}

	var slug []rune
	inSpace := false
	for _, r := range stripped.String() {
		if r == ' ' {
			inSpace = true
			continue
		}
		if inSpace {
			slug = append(slug, '-')
			inSpace = false
		}
		slug = append(slug, r)
	}
	if inSpace {
		slug = append(slug, '-')
	}

	if len(slug) > slugMaxLength {
		slug = slug[:slugMaxLength]
	}

	return string(slug)
}

// Fragment returns the site fragment identifier for an article,
// e.g. "#blog-12-новая-статья".
func Fragment(id int, title string) string {
	return fmt.Sprintf("#blog-%d-%s", id, Slug(title))
}
