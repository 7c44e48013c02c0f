package common

import "fmt"

// AgeCategory is the life stage a tree was recorded at.
type AgeCategory uint8

const (
	Young AgeCategory = iota
	SemiMature
	EarlyMature
	Mature
)

// Categories lists every AgeCategory in declaration order.
var Categories = [...]AgeCategory{Young, SemiMature, EarlyMature, Mature}

var categoryNames = [...]string{
	Young:       "Young",
	SemiMature:  "SemiMature",
	EarlyMature: "EarlyMature",
	Mature:      "Mature",
}

var categorySlugs = [...]string{
	Young:       "young",
	SemiMature:  "semimature",
	EarlyMature: "earlymature",
	Mature:      "mature",
}

func (a AgeCategory) Valid() bool {
	return int(a) < len(categoryNames)
}

func (a AgeCategory) String() string {
	if !a.Valid() {
		return fmt.Sprintf("AgeCategory(%d)", uint8(a))
	}
	return categoryNames[a]
}

// Slug is the lower-case form used in URL paths.
func (a AgeCategory) Slug() string {
	if !a.Valid() {
		return ""
	}
	return categorySlugs[a]
}

func (a AgeCategory) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid age category %d", uint8(a))
	}
	return []byte(categoryNames[a]), nil
}

func (a *AgeCategory) UnmarshalText(b []byte) error {
	c, err := ParseAgeCategory(string(b))
	if err != nil {
		return err
	}
	*a = c
	return nil
}

// ParseAgeCategory accepts the variant name as it appears in the dataset
// ("Young", "SemiMature", ...).
func ParseAgeCategory(s string) (AgeCategory, error) {
	for i, name := range categoryNames {
		if name == s {
			return AgeCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown age category %q", s)
}

// CategoryFromSlug maps a URL path segment to its category. Matching is exact
// and case-sensitive.
func CategoryFromSlug(s string) (AgeCategory, bool) {
	for i, slug := range categorySlugs {
		if slug == s {
			return AgeCategory(i), true
		}
	}
	return 0, false
}

// Record is a single tree observation.
type Record struct {
	ID         uint32      `json:"id"`
	Age        AgeCategory `json:"age"`
	TrunkWidth uint32      `json:"trunk_width"`
	Ward       string      `json:"ward"`
	Species    string      `json:"species"`
	Height     uint32      `json:"height"`
}

// Measured reports whether both height and trunk width were recorded. A zero
// in either field means the tree was not measured.
func (r Record) Measured() bool {
	return r.Height != 0 && r.TrunkWidth != 0
}

func (r Record) String() string {
	return fmt.Sprintf("Record{ID: %d, Age: %s, Height: %d}", r.ID, r.Age, r.Height)
}
