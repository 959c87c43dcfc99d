package typography

import (
	"strings"

	"brand-dna-studio/internal/brand"
)

const fallbackFamily = "sans-serif"

// Clean reduces a CSS font-family declaration to its first family name.
func Clean(decl string) string {
	first, _, _ := strings.Cut(decl, ",")
	name := strings.NewReplacer(`"`, "", "'", "").Replace(strings.TrimSpace(first))
	name = strings.TrimSpace(name)
	if name == "" {
		return fallbackFamily
	}
	return name
}

func Normalize(headingDecl, bodyDecl string) brand.TypographicVector {
	return brand.TypographicVector{
		Headings:             Clean(headingDecl),
		Body:                 Clean(bodyDecl),
		GoogleFontsAvailable: true,
		FallbackHeadings:     fallbackFamily,
		FallbackBody:         fallbackFamily,
	}
}
