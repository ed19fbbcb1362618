// Package text prepares free text for embedding and keyword matching: it
// normalizes raw profile fields and queries into a stable comparison form,
// builds weighted composite texts from profiles, and splits long text into
// overlapping sentence-aligned chunks.
package text

import (
	"strings"
	"unicode"
)

// NormalizerConfig controls text normalization.
type NormalizerConfig struct {
	Lowercase   bool
	MinTokenLen int
	MaxTokenLen int
}

// DefaultNormalizerConfig returns the normalization settings used across the service.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{Lowercase: true, MinTokenLen: 2, MaxTokenLen: 40}
}

// stopWords are filtered from normalized text. Domain-significant craft terms
// are protected by keepTerms even when they would otherwise be dropped.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"to": {}, "was": {}, "were": {}, "will": {}, "with": {}, "i": {}, "we": {},
	"our": {}, "my": {}, "your": {}, "this": {}, "these": {}, "they": {},
}

// keepTerms is the allow-list of domain vocabulary that survives stop-word
// and length filtering unconditionally.
var keepTerms = map[string]struct{}{
	// crafts
	"pottery": {}, "weaving": {}, "jewelry": {}, "jewellery": {}, "carving": {},
	"embroidery": {}, "blockprint": {}, "leatherwork": {}, "metalwork": {},
	"woodwork": {}, "ceramics": {}, "textiles": {}, "puppetry": {},
	// materials
	"silver": {}, "gold": {}, "brass": {}, "copper": {}, "clay": {}, "silk": {},
	"cotton": {}, "wool": {}, "wood": {}, "bamboo": {}, "jute": {}, "stone": {},
	"terracotta": {}, "marble": {}, "leather": {}, "glass": {},
	// techniques
	"filigree": {}, "meenakari": {}, "kundan": {}, "zardozi": {}, "ikat": {},
	"bandhani": {}, "chikankari": {}, "kalamkari": {}, "dhokra": {},
	"bidri": {}, "tarkashi": {}, "warli": {}, "madhubani": {},
}

// Normalize produces the stable comparison form of raw text: optional
// lowercasing, punctuation stripped (sentence boundaries and numerics kept),
// whitespace collapsed, and tokens outside the configured length bounds or in
// the stop-word list dropped. Allow-listed domain terms are never dropped.
func Normalize(raw string, cfg NormalizerConfig) string {
	if cfg.MaxTokenLen <= 0 {
		cfg = DefaultNormalizerConfig()
	}

	cleaned := stripPunctuation(raw)
	if cfg.Lowercase {
		cleaned = strings.ToLower(cleaned)
	}

	tokens := strings.Fields(cleaned)
	kept := tokens[:0]
	for _, tok := range tokens {
		bare := strings.TrimRight(tok, ".")
		if _, protected := keepTerms[strings.ToLower(bare)]; protected {
			kept = append(kept, tok)
			continue
		}
		if isSentenceMark(tok) {
			kept = append(kept, tok)
			continue
		}
		if len(bare) < cfg.MinTokenLen && !isNumeric(bare) {
			continue
		}
		if len(bare) > cfg.MaxTokenLen {
			continue
		}
		if _, stop := stopWords[strings.ToLower(bare)]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

// Tokenize returns the normalized tokens of raw text without sentence marks.
func Tokenize(raw string, cfg NormalizerConfig) []string {
	normalized := Normalize(raw, cfg)
	fields := strings.Fields(normalized)
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// stripPunctuation removes punctuation while preserving sentence-final
// periods (so chunking can still find boundaries), digits, and decimal points.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '.' || r == '!' || r == '?':
			// keep decimal points and sentence boundaries, normalized to '.'
			if r == '.' && i > 0 && i+1 < len(runes) &&
				unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				b.WriteRune('.')
			} else {
				b.WriteString(". ")
			}
		case r == '\'' || r == '’':
			// drop apostrophes without splitting the word
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func isSentenceMark(tok string) bool {
	return tok == "."
}

func isNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}
