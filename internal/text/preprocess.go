package text

import (
	"math"
	"strings"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// FieldWeight controls how strongly a profile field influences the composite
// embedding text: the field's normalized text is repeated ceil(weight) times.
type FieldWeight struct {
	Field  domain.FieldType
	Weight float64
}

// fieldSeparator joins field texts in the composite; a period keeps chunking
// sentence-aligned across field boundaries.
const fieldSeparator = ". "

// craftSynonyms expands colloquial skill terms to canonical phrases so that
// profiles and queries using different vocabulary still embed close together.
var craftSynonyms = map[string]string{
	"pots":        "pottery clay work",
	"potter":      "pottery clay work",
	"cloth":       "textiles fabric weaving",
	"fabric":      "textiles fabric weaving",
	"ornaments":   "jewelry ornament making",
	"jewellery":   "jewelry",
	"woodcraft":   "wood carving woodwork",
	"metalcraft":  "metalwork metal casting",
	"stitching":   "embroidery needlework",
	"needlework":  "embroidery needlework",
	"printing":    "block printing textile printing",
	"sculpting":   "sculpture stone carving",
	"basketry":    "basket weaving bamboo craft",
	"glasswork":   "glass blowing glass craft",
	"terracotta":  "terracotta clay craft",
	"handloom":    "handloom weaving textiles",
}

// locationNoise are generic words stripped from location fields; the city or
// region name is the part that carries meaning.
var locationNoise = map[string]struct{}{
	"city": {}, "state": {}, "district": {}, "village": {}, "town": {},
	"near": {}, "area": {}, "region": {},
}

// Preprocessor builds composite embedding texts from artisan profiles.
type Preprocessor struct {
	cfg     NormalizerConfig
	weights []FieldWeight
}

// DefaultFieldWeights is the canonical weighting table shared by the
// preprocessor and the retrieval scorer. Description carries the most
// semantic signal; specialization is a strong secondary.
func DefaultFieldWeights() []FieldWeight {
	return []FieldWeight{
		{Field: domain.FieldDescription, Weight: 2.0},
		{Field: domain.FieldSpecialization, Weight: 1.5},
		{Field: domain.FieldComposite, Weight: 1.0},
	}
}

// NewPreprocessor creates a profile preprocessor.
func NewPreprocessor(cfg NormalizerConfig) *Preprocessor {
	return &Preprocessor{cfg: cfg, weights: DefaultFieldWeights()}
}

// FieldText returns the normalized text for a single embeddable profile field.
// FieldComposite returns the full weighted composite.
func (p *Preprocessor) FieldText(profile *domain.ArtisanProfile, field domain.FieldType) string {
	switch field {
	case domain.FieldDescription:
		return Normalize(profile.Description, p.cfg)
	case domain.FieldSpecialization:
		return Normalize(strings.Join(profile.Specializations, " "), p.cfg)
	default:
		return p.Composite(profile)
	}
}

// Composite builds the weighted composite text for a profile: each configured
// field is extracted, cleaned with field-specific rules, repeated proportional
// to its importance weight, and joined with derived contextual clauses.
func (p *Preprocessor) Composite(profile *domain.ArtisanProfile) string {
	parts := make([]string, 0, 8)

	appendWeighted := func(text string, weight float64) {
		if text == "" {
			return
		}
		repeats := int(math.Ceil(weight))
		if repeats < 1 {
			repeats = 1
		}
		for i := 0; i < repeats; i++ {
			parts = append(parts, text)
		}
	}

	appendWeighted(Normalize(profile.Profession, p.cfg), 2.0)
	appendWeighted(Normalize(profile.Name, p.cfg), 1.0)
	appendWeighted(Normalize(profile.Description, p.cfg), 2.0)
	appendWeighted(Normalize(strings.Join(profile.Specializations, " "), p.cfg), 1.5)
	appendWeighted(expandSkills(profile.Skills, p.cfg), 1.5)
	appendWeighted(Normalize(strings.Join(profile.Materials, " "), p.cfg), 1.0)
	appendWeighted(Normalize(strings.Join(profile.Techniques, " "), p.cfg), 1.0)
	appendWeighted(cleanLocation(profile.Location, p.cfg), 1.0)

	for _, clause := range contextClauses(profile) {
		parts = append(parts, clause)
	}

	return strings.Join(parts, fieldSeparator)
}

// expandSkills maps colloquial skill terms to canonical craft phrases.
func expandSkills(skills []string, cfg NormalizerConfig) string {
	if len(skills) == 0 {
		return ""
	}
	expanded := make([]string, 0, len(skills))
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s))
		if canonical, ok := craftSynonyms[key]; ok {
			expanded = append(expanded, canonical)
		} else {
			expanded = append(expanded, s)
		}
	}
	return Normalize(strings.Join(expanded, " "), cfg)
}

// cleanLocation strips generic locality words so "Jaipur city, Rajasthan
// state" and "Jaipur Rajasthan" normalize identically.
func cleanLocation(location string, cfg NormalizerConfig) string {
	tokens := Tokenize(location, cfg)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, noise := locationNoise[strings.ToLower(tok)]; noise {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// contextClauses derives descriptive clauses from structured fields by
// threshold rules, giving the embedding model context the raw fields lack.
func contextClauses(profile *domain.ArtisanProfile) []string {
	clauses := make([]string, 0, 3)

	switch profile.ExperienceLevel() {
	case domain.ExperienceMaster:
		clauses = append(clauses, "master artisan with decades of craft experience")
	case domain.ExperienceSeasoned:
		clauses = append(clauses, "experienced artisan with over ten years of practice")
	case domain.ExperienceIntermediate:
		clauses = append(clauses, "skilled artisan with several years of practice")
	default:
		clauses = append(clauses, "emerging artisan learning traditional craft")
	}

	switch {
	case profile.BusinessSize >= 10:
		clauses = append(clauses, "runs a workshop employing local artisans")
	case profile.BusinessSize >= 3:
		clauses = append(clauses, "works with a small family workshop")
	case profile.BusinessSize > 0:
		clauses = append(clauses, "independent individual artisan")
	}

	if region := heritageRegion(profile.Location); region != "" {
		clauses = append(clauses, "traditional craft heritage of "+region)
	}

	return clauses
}

// heritageRegions maps location substrings to craft heritage regions.
var heritageRegions = map[string]string{
	"jaipur":    "rajasthan",
	"jodhpur":   "rajasthan",
	"rajasthan": "rajasthan",
	"varanasi":  "uttar pradesh",
	"lucknow":   "uttar pradesh",
	"kutch":     "gujarat",
	"bhuj":      "gujarat",
	"mysore":    "karnataka",
	"kanchipuram": "tamil nadu",
	"srinagar":  "kashmir",
}

func heritageRegion(location string) string {
	loc := strings.ToLower(location)
	for key, region := range heritageRegions {
		if strings.Contains(loc, key) {
			return region
		}
	}
	return ""
}
