package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// listSep joins multi-value fields inside a hash field. U+001F (unit
// separator) never appears in profile text.
const listSep = "\x1f"

func profileToFields(p *domain.ArtisanProfile) map[string]string {
	return map[string]string{
		"id":              p.ID,
		"name":            p.Name,
		"profession":      p.Profession,
		"materials":       strings.Join(p.Materials, listSep),
		"techniques":      strings.Join(p.Techniques, listSep),
		"skills":          strings.Join(p.Skills, listSep),
		"specializations": strings.Join(p.Specializations, listSep),
		"description":     p.Description,
		"location":        p.Location,
		"experience":      strconv.Itoa(p.ExperienceYears),
		"availability":    string(p.Availability),
		"quality":         string(p.Quality),
		"business_size":   strconv.Itoa(p.BusinessSize),
		"rating":          strconv.FormatFloat(p.Rating, 'f', -1, 64),
		"updated_at":      p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fieldsToProfile(fields map[string]string) *domain.ArtisanProfile {
	p := &domain.ArtisanProfile{
		ID:              fields["id"],
		Name:            fields["name"],
		Profession:      fields["profession"],
		Materials:       splitList(fields["materials"]),
		Techniques:      splitList(fields["techniques"]),
		Skills:          splitList(fields["skills"]),
		Specializations: splitList(fields["specializations"]),
		Description:     fields["description"],
		Location:        fields["location"],
		Availability:    domain.Availability(fields["availability"]),
		Quality:         domain.QualityLevel(fields["quality"]),
	}
	p.ExperienceYears, _ = strconv.Atoi(fields["experience"])
	p.BusinessSize, _ = strconv.Atoi(fields["business_size"])
	p.Rating, _ = strconv.ParseFloat(fields["rating"], 64)
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		p.UpdatedAt = ts
	}
	return p
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
