package sanitizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reNonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	reMultiHyphen = regexp.MustCompile(`-+`)
	reNonCode     = regexp.MustCompile(`[^A-Z0-9_-]+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stripMarks removes combining accents so "Café Crème" slugs to "cafe-creme".
func stripMarks(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func Slugify(input string) string {
	p := Pipeline{
		stripMarks,
		trimAndLower,
		func(s string) string { return reNonSlug.ReplaceAllString(s, "-") },
		func(s string) string { return reMultiHyphen.ReplaceAllString(s, "-") },
		func(s string) string { return strings.Trim(s, "-") },
	}
	return p.Apply(input)
}

func NormalizeEmail(email string) string {
	return trimAndLower(email)
}

func NormalizePromoCode(code string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToUpper,
		func(s string) string { return reNonCode.ReplaceAllString(s, "") },
	}
	return p.Apply(code)
}

func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeDomain reduces a host or URL to its bare lowercase hostname.
func NormalizeDomain(domain string) string {
	s := trimAndLower(domain)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s[i:], "]") {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}
