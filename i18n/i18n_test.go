package i18n

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"zh_CN", "zh"},
		{"de-AT", "de"},
		{"FR", "fr"},
		{"ja", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTFormatsAndFallsBack(t *testing.T) {
	if got := T("en", ErrAPI, "OpenAI", 500); got != "OpenAI returned an error (HTTP 500)" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := T("ja", ErrMissingKey, "Gemini"); got != "Gemini API key is not configured" {
		t.Errorf("expected English fallback, got %q", got)
	}
	if got := T("en", "no.such.id"); got != "no.such.id" {
		t.Errorf("expected id passthrough, got %q", got)
	}
}

func TestEveryLanguageHasEveryMessage(t *testing.T) {
	for id := range catalog["en"] {
		for _, lang := range Languages() {
			if _, ok := catalog[lang][id]; !ok {
				t.Errorf("language %s is missing %s", lang, id)
			}
		}
	}
}
