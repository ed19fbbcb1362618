// Package filter holds the structured pre-filter applied to the catalog
// before any relevance scoring. Filtering never touches embeddings.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// Filters narrows the candidate pool by structured profile attributes.
// The zero value matches every profile.
type Filters struct {
	Profession   string
	Materials    []string
	Techniques   []string
	Location     string
	MinYears     int
	Availability domain.Availability
	Quality      domain.QualityLevel
}

// IsEmpty reports whether no filter is set.
func (f *Filters) IsEmpty() bool {
	return f.Profession == "" &&
		len(f.Materials) == 0 &&
		len(f.Techniques) == 0 &&
		f.Location == "" &&
		f.MinYears == 0 &&
		f.Availability == "" &&
		f.Quality == ""
}

// Matches reports whether the profile passes every set filter.
func (f *Filters) Matches(p *domain.ArtisanProfile) bool {
	if f.Profession != "" && !strings.EqualFold(f.Profession, p.Profession) {
		return false
	}
	if f.Location != "" && !containsFold(p.Location, f.Location) {
		return false
	}
	if f.MinYears > 0 && p.ExperienceYears < f.MinYears {
		return false
	}
	if f.Availability != "" && p.Availability != f.Availability {
		return false
	}
	if f.Quality != "" && p.Quality.Rank() < f.Quality.Rank() {
		return false
	}
	if !anyOverlapFold(f.Materials, p.Materials) {
		return false
	}
	if !anyOverlapFold(f.Techniques, p.Techniques) {
		return false
	}
	return true
}

// Key returns a stable representation used in result cache keys.
// Slices are sorted so logically equal filters produce equal keys.
func (f *Filters) Key() string {
	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strings.ToLower(f.Profession))
	b.WriteString("|m=")
	b.WriteString(sortedJoin(f.Materials))
	b.WriteString("|t=")
	b.WriteString(sortedJoin(f.Techniques))
	b.WriteString("|l=")
	b.WriteString(strings.ToLower(f.Location))
	b.WriteString("|y=")
	b.WriteString(strconv.Itoa(f.MinYears))
	b.WriteString("|a=")
	b.WriteString(string(f.Availability))
	b.WriteString("|q=")
	b.WriteString(string(f.Quality))
	return b.String()
}

// anyOverlapFold reports whether any wanted value appears in have,
// case-insensitively. An empty want list always passes.
func anyOverlapFold(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortedJoin(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	lowered := make([]string, len(vals))
	for i, v := range vals {
		lowered[i] = strings.ToLower(v)
	}
	sort.Strings(lowered)
	return strings.Join(lowered, ",")
}

