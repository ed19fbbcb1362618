package domain

import (
	"fmt"
	"strings"
	"time"
)

// Availability is an artisan's current capacity to take orders.
type Availability string

// Availability values.
const (
	Available   Availability = "available"
	Busy        Availability = "busy"
	Unavailable Availability = "unavailable"
)

// IsValid reports whether the availability value is known.
func (a Availability) IsValid() bool {
	switch a {
	case Available, Busy, Unavailable, "":
		return true
	}
	return false
}

// QualityLevel is a certification tier assigned by the catalog.
type QualityLevel string

// QualityLevel values, ordered from lowest to highest tier.
const (
	QualityStandard QualityLevel = "standard"
	QualityPremium  QualityLevel = "premium"
	QualityExport   QualityLevel = "export"
)

// Rank returns the ordering of the quality tier; higher is better.
// Unknown tiers rank below standard so they never win a tie-break.
func (q QualityLevel) Rank() int {
	switch q {
	case QualityStandard:
		return 1
	case QualityPremium:
		return 2
	case QualityExport:
		return 3
	}
	return 0
}

// IsValid reports whether the quality level is known.
func (q QualityLevel) IsValid() bool {
	switch q {
	case QualityStandard, QualityPremium, QualityExport, "":
		return true
	}
	return false
}

// ExperienceLevel is a coarse tier derived from years of practice.
type ExperienceLevel string

// ExperienceLevel values.
const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceSeasoned     ExperienceLevel = "experienced"
	ExperienceMaster       ExperienceLevel = "master"
)

// ExperienceLevelFromYears maps years of practice to a tier.
func ExperienceLevelFromYears(years int) ExperienceLevel {
	switch {
	case years >= 20:
		return ExperienceMaster
	case years >= 10:
		return ExperienceSeasoned
	case years >= 3:
		return ExperienceIntermediate
	default:
		return ExperienceBeginner
	}
}

// ArtisanProfile is the read-only profile snapshot the matcher scores against.
// ID, Name, and Profession are required; everything else is optional and
// zero values mean "not provided"; scoring must never assume their presence.
type ArtisanProfile struct {
	ID         string
	Name       string
	Profession string

	Materials       []string
	Techniques      []string
	Skills          []string
	Specializations []string
	Description     string
	Location        string

	ExperienceYears int
	Availability    Availability
	Quality         QualityLevel
	BusinessSize    int // number of people working in the workshop
	Rating          float64
	UpdatedAt       time.Time
}

// Validate checks the required fields and enum values.
func (p *ArtisanProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("profile id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile %s: name is required", p.ID)
	}
	if strings.TrimSpace(p.Profession) == "" {
		return fmt.Errorf("profile %s: profession is required", p.ID)
	}
	if !p.Availability.IsValid() {
		return fmt.Errorf("profile %s: unknown availability %q", p.ID, p.Availability)
	}
	if !p.Quality.IsValid() {
		return fmt.Errorf("profile %s: unknown quality level %q", p.ID, p.Quality)
	}
	return nil
}

// ExperienceLevel returns the tier derived from ExperienceYears.
func (p *ArtisanProfile) ExperienceLevel() ExperienceLevel {
	return ExperienceLevelFromYears(p.ExperienceYears)
}
