package domain

// StyleID identifies a style preset in the catalog.
type StyleID string

// StyleDefinition is an immutable style preset loaded once at startup.
type StyleDefinition struct {
	ID          StyleID `json:"id"`
	DisplayName string  `json:"display_name"`
	PreviewRef  string  `json:"preview_ref"`
	IsPremium   bool    `json:"is_premium"`
}

// DefaultIntensity is applied when a caller does not pick an intensity.
const DefaultIntensity = 0.7

// ValidIntensity reports whether v lies within [0,1].
func ValidIntensity(v float64) bool {
	return v >= 0 && v <= 1
}
