// Package safety computes the weighted safety score for the current area.
package safety

import "math"

// Metrics are 0-100 ratings; higher is safer.
type Metrics struct {
	Lighting        int `json:"lighting"`
	CrimeRate       int `json:"crimeRate"`
	CrowdDensity    int `json:"crowdDensity"`
	Surveillance    int `json:"surveillance"`
	CommunityRating int `json:"communityRating"`
}

// Weights sum to 1.
type Weights struct {
	Lighting        float64 `json:"lighting"`
	CrimeRate       float64 `json:"crimeRate"`
	CrowdDensity    float64 `json:"crowdDensity"`
	Surveillance    float64 `json:"surveillance"`
	CommunityRating float64 `json:"communityRating"`
}

// DefaultWeights weigh crime rate highest.
var DefaultWeights = Weights{
	Lighting:        0.2,
	CrimeRate:       0.3,
	CrowdDensity:    0.15,
	Surveillance:    0.15,
	CommunityRating: 0.2,
}

// Band classifies a score.
type Band string

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// Report is the full score breakdown.
type Report struct {
	Metrics Metrics `json:"metrics"`
	Weights Weights `json:"weights"`
	Overall int     `json:"overall"`
	Band    Band    `json:"band"`
}

// Score returns the weighted score, rounded half up like Math.round.
func Score(m Metrics, w Weights) int {
	sum := float64(clamp(m.Lighting))*w.Lighting +
		float64(clamp(m.CrimeRate))*w.CrimeRate +
		float64(clamp(m.CrowdDensity))*w.CrowdDensity +
		float64(clamp(m.Surveillance))*w.Surveillance +
		float64(clamp(m.CommunityRating))*w.CommunityRating
	return int(math.Floor(sum + 0.5))
}

// BandFor maps a score to its band: 80 and up is good, 60 and up fair.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// Evaluate scores m with the default weights.
func Evaluate(m Metrics) Report {
	overall := Score(m, DefaultWeights)
	return Report{Metrics: m, Weights: DefaultWeights, Overall: overall, Band: BandFor(overall)}
}

func clamp(v int) int {
	return max(0, min(100, v))
}
