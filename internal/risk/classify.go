// Package risk maps a fraud probability returned by the scoring service to
// the three-tier level shown to users.
package risk

// Level is a presentation tier for a fraud probability.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Thresholds for Classify. High is exclusive, medium inclusive.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

// Classify returns HIGH above 0.8, MEDIUM for [0.5, 0.8] and LOW otherwise.
// NaN and out-of-range values below 0.5 fall through to LOW.
func Classify(probability float64) Level {
	switch {
	case probability > HighThreshold:
		return LevelHigh
	case probability >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return string(l)
}
