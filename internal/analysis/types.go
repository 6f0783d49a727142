package analysis

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a risk band shared by the questionnaire and the combined score.
type Tier int

const (
	TierLow Tier = iota
	TierModerate
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "HIGH"
	case TierModerate:
		return "MODERATE"
	default:
		return "LOW"
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "HIGH":
		*t = TierHigh
	case "MODERATE":
		*t = TierModerate
	case "LOW":
		*t = TierLow
	default:
		return fmt.Errorf("unknown tier %q", string(b))
	}
	return nil
}

type AQ10Result struct {
	Score          int     `json:"score"`
	Tier           Tier    `json:"tier"`
	Probability    float64 `json:"probability"`
	Interpretation string  `json:"interpretation"`
}

type Recommendation struct {
	Tier Tier   `json:"tier"`
	Text string `json:"text"`
}

type CombinedResult struct {
	ImageProb          float64 `json:"image_prob"`
	AQ10Prob           float64 `json:"aq10_prob"`
	CombinedProb       float64 `json:"combined_prob"`
	RecommendationTier Tier    `json:"recommendation_tier"`
	RecommendationText string  `json:"recommendation_text"`
}

// Assessment is one complete screening. It is either fully populated or
// not produced at all.
type Assessment struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Responses ResponseSet    `json:"responses"`
	AQ10      AQ10Result     `json:"aq10"`
	Combined  CombinedResult `json:"combined"`
	Image     []byte         `json:"-"`
}

var interpretations = map[Tier]string{
	TierHigh:     "High risk - Consider specialist diagnostic assessment",
	TierModerate: "Moderate risk - Monitor and consider further evaluation",
	TierLow:      "Low risk - Typical development likely",
}

var recommendations = map[Tier]string{
	TierHigh: "High combined risk — strongly recommend consulting a specialist for formal diagnosis. " +
		"Please contact a developmental pediatrician, child psychologist, or neurologist for a full evaluation.",
	TierModerate: "Moderate combined risk — recommend monitoring and considering professional screening. " +
		"You may consider discussing these results with your child's primary care provider or a child development specialist.",
	TierLow: "Low combined risk — current findings suggest typical development. " +
		"However, if there are concerns, it's always good to consult with a pediatrician.",
}

// Interpretation returns the questionnaire tier text.
func Interpretation(t Tier) string { return interpretations[t] }

// RecommendationText returns the combined tier follow-up text.
func RecommendationText(t Tier) string { return recommendations[t] }
