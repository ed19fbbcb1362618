package text

import (
	"strings"
	"testing"
)

func TestNormalize_LowercasesAndCollapsesWhitespace(t *testing.T) {
	got := Normalize("  Handmade   SILVER   Rings  ", DefaultNormalizerConfig())
	if got != "handmade silver rings" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestNormalize_DropsStopWordsButKeepsDomainTerms(t *testing.T) {
	got := Normalize("the art of silver and clay", DefaultNormalizerConfig())
	if strings.Contains(got, "the ") || strings.Contains(got, " and ") {
		t.Errorf("stop words should be dropped: %q", got)
	}
	if !strings.Contains(got, "silver") || !strings.Contains(got, "clay") {
		t.Errorf("domain terms must never be dropped: %q", got)
	}
}

func TestNormalize_KeepsNumerics(t *testing.T) {
	got := Normalize("over 25 years, rated 4.8", DefaultNormalizerConfig())
	if !strings.Contains(got, "25") || !strings.Contains(got, "4.8") {
		t.Errorf("numerics must survive normalization: %q", got)
	}
}

func TestNormalize_DropsShortAndLongTokens(t *testing.T) {
	long := strings.Repeat("x", 60)
	got := Normalize("a b "+long+" pottery", DefaultNormalizerConfig())
	if strings.Contains(got, long) {
		t.Errorf("overlong token should be dropped: %q", got)
	}
	if !strings.Contains(got, "pottery") {
		t.Errorf("regular token missing: %q", got)
	}
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("Silver filigree work. From Jaipur!", DefaultNormalizerConfig())
	want := map[string]bool{"silver": true, "filigree": true, "jaipur": true}
	for _, tok := range toks {
		delete(want, tok)
	}
	if len(want) != 0 {
		t.Errorf("missing tokens %v in %v", want, toks)
	}
	for _, tok := range toks {
		if tok == "." {
			t.Errorf("sentence marks must not appear in tokens: %v", toks)
		}
	}
}
