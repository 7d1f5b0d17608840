package sanitizer

import (
	"reflect"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Rome Colosseum Tour", "rome-colosseum-tour"},
		{"  Café Crème  ", "cafe-creme"},
		{"Paris -- Louvre!!", "paris-louvre"},
		{"already-a-slug", "already-a-slug"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Slugify(tt.input)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Slugify(got); again != got {
				t.Errorf("Slugify not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizePromoCode(t *testing.T) {
	tests := map[string]string{
		" summer10 ":  "SUMMER10",
		"early-bird!": "EARLY-BIRD",
		"":            "",
	}
	for in, want := range tests {
		if got := NormalizePromoCode(in); got != want {
			t.Errorf("NormalizePromoCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"https://Tours.Example.com/path": "tours.example.com",
		"acme.travel:8443":               "acme.travel",
		"shop.example.org.":              "shop.example.org",
		"localhost":                      "localhost",
	}
	for in, want := range tests {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"e164 stays", "+14155552671", "+14155552671"},
		{"formatted us number", "(415) 555-2671", "+14155552671"},
		{"foreign with prefix", "+44 121 234 5678", "+441212345678"},
		{"garbage", "call me", ""},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimAndNormalize(t *testing.T) {
	if got := TrimAndNormalize("  Skip \t the   line\n"); got != "Skip the line" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeBadges(t *testing.T) {
	got := NormalizeBadges([]string{"Best Seller", "best-seller", "", "Skip the Line"})
	want := []string{"best-seller", "skip-the-line"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := NormalizeBadges(nil); len(got) != 0 || got == nil {
		t.Errorf("nil input should give empty non-nil slice, got %#v", got)
	}
}

func TestNormalizeDomains(t *testing.T) {
	got := NormalizeDomains([]string{"Acme.Travel", "https://acme.travel/", "tours.acme.travel"})
	want := []string{"acme.travel", "tours.acme.travel"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Eiffel  Tower", "eiffel tower", "", "Paris"})
	want := []string{"eiffel tower", "paris"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
