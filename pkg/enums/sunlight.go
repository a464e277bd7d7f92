package enums

import "fmt"

// Sunlight is the light requirement shown on a common name page.
type Sunlight string

const (
	SunlightFullSun   Sunlight = "full_sun"
	SunlightPartSun   Sunlight = "part_sun"
	SunlightPartShade Sunlight = "part_shade"
	SunlightFullShade Sunlight = "full_shade"
)

var validSunlight = []Sunlight{
	SunlightFullSun,
	SunlightPartSun,
	SunlightPartShade,
	SunlightFullShade,
}

// String implements fmt.Stringer.
func (s Sunlight) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Sunlight.
func (s Sunlight) IsValid() bool {
	for _, candidate := range validSunlight {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSunlight converts raw input into a Sunlight.
func ParseSunlight(value string) (Sunlight, error) {
	for _, candidate := range validSunlight {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sunlight %q", value)
}
