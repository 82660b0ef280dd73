package model

import "errors"

// ErrUnknownClassification is returned for labels outside the known set.
var ErrUnknownClassification = errors.New("unknown classification")

// Classification is the backend's categorical verdict.
type Classification int

const (
	ClassificationUnknown Classification = iota
	HighlyLikelyFake
	PossiblyFake
	LikelyReal
)

// Wire labels used by the analysis backend.
const (
	labelHighlyLikelyFake = "Highly Likely Fake"
	labelPossiblyFake     = "Possibly Fake"
	labelLikelyReal       = "Likely Real"
)

func (c Classification) String() string {
	switch c {
	case HighlyLikelyFake:
		return labelHighlyLikelyFake
	case PossiblyFake:
		return labelPossiblyFake
	case LikelyReal:
		return labelLikelyReal
	default:
		return "Unknown"
	}
}

// IsFake reports whether the classification counts as fake for guess matching.
func (c Classification) IsFake() bool {
	return c == HighlyLikelyFake || c == PossiblyFake
}

// ParseClassification maps a backend label onto a Classification.
func ParseClassification(label string) (Classification, error) {
	switch label {
	case labelHighlyLikelyFake:
		return HighlyLikelyFake, nil
	case labelPossiblyFake:
		return PossiblyFake, nil
	case labelLikelyReal:
		return LikelyReal, nil
	default:
		return ClassificationUnknown, ErrUnknownClassification
	}
}

// AnomalyPoint is a hotspot in the native pixel space of the submitted image.
// Intensity 0 means unspecified.
type AnomalyPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity float64 `json:"intensity"`
}

// Claim is one fact-check finding attached to a verdict.
type Claim struct {
	Text   string `json:"claim_text"`
	Rating string `json:"rating"`
}

// FactCheck carries the optional fact-check payload of a verdict.
type FactCheck struct {
	Claims []Claim `json:"claims"`
}

// Verdict is the analysis backend's answer for one submission.
// It is treated as immutable after receipt.
type Verdict struct {
	Classification Classification `json:"-"`
	Score          float64        `json:"score"`
	AnomalyPoints  []AnomalyPoint `json:"anomaly_points"`
	FactCheck      *FactCheck     `json:"fact_check,omitempty"`
}

// FactCheckResult is the fact-check backend's answer for a single claim.
type FactCheckResult struct {
	Claim   string `json:"claim"`
	Verdict string `json:"verdict"`
	Source  string `json:"source"`
}
