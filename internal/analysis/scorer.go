package analysis

// ScoreResponses computes the AQ-10 score, tier and probability.
func ScoreResponses(rs ResponseSet, t AQ10Thresholds) (AQ10Result, error) {
	if err := rs.Validate(); err != nil {
		return AQ10Result{}, err
	}

	score := 0
	for _, it := range items {
		score += itemScore(it, rs[it.ID])
	}

	tier := TierLow
	switch {
	case score >= t.High:
		tier = TierHigh
	case score >= t.Moderate:
		tier = TierModerate
	}

	return AQ10Result{
		Score:          score,
		Tier:           tier,
		Probability:    float64(score) / ItemCount,
		Interpretation: Interpretation(tier),
	}, nil
}

// Combine forms the weighted mix of the two probabilities. Invalid weights
// fail with ErrInvalidConfig rather than producing a value to clamp.
func Combine(imageProb, aq10Prob float64, w Weights) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if err := checkProbability("image_prob", imageProb); err != nil {
		return 0, err
	}
	if err := checkProbability("aq10_prob", aq10Prob); err != nil {
		return 0, err
	}
	return snapUnit("combined_prob", imageProb*w.Image+aq10Prob*w.AQ10)
}

// Recommend maps a combined probability to its tier and follow-up text.
// Bounds are inclusive on the lower side.
func Recommend(p float64, t CombinedThresholds) (Recommendation, error) {
	if err := checkProbability("combined_prob", p); err != nil {
		return Recommendation{}, err
	}

	tier := TierLow
	switch {
	case p >= t.High:
		tier = TierHigh
	case p >= t.Moderate:
		tier = TierModerate
	}
	return Recommendation{Tier: tier, Text: RecommendationText(tier)}, nil
}

// Scorer binds the pure scoring functions to one validated configuration.
type Scorer struct {
	cfg ScoringConfig
}

func NewScorer(cfg ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

func (s *Scorer) Config() ScoringConfig { return s.cfg }

func (s *Scorer) ScoreQuestionnaire(rs ResponseSet) (AQ10Result, error) {
	return ScoreResponses(rs, s.cfg.AQ10)
}

func (s *Scorer) Combine(imageProb, aq10Prob float64) (float64, error) {
	return Combine(imageProb, aq10Prob, s.cfg.Weights)
}

func (s *Scorer) Recommend(p float64) (Recommendation, error) {
	return Recommend(p, s.cfg.Combined)
}

// Evaluate runs score, combine and recommend for an already known image
// probability.
func (s *Scorer) Evaluate(imageProb float64, rs ResponseSet) (AQ10Result, CombinedResult, error) {
	aq, err := s.ScoreQuestionnaire(rs)
	if err != nil {
		return AQ10Result{}, CombinedResult{}, err
	}
	combined, err := s.CombineWith(imageProb, aq)
	if err != nil {
		return AQ10Result{}, CombinedResult{}, err
	}
	return aq, combined, nil
}

// CombineWith builds the full combined result from an image probability and
// a scored questionnaire.
func (s *Scorer) CombineWith(imageProb float64, aq AQ10Result) (CombinedResult, error) {
	return s.CombineProbabilities(imageProb, aq.Probability)
}

// CombineProbabilities fuses two probabilities and attaches the
// recommendation.
func (s *Scorer) CombineProbabilities(imageProb, aq10Prob float64) (CombinedResult, error) {
	p, err := s.Combine(imageProb, aq10Prob)
	if err != nil {
		return CombinedResult{}, err
	}
	rec, err := s.Recommend(p)
	if err != nil {
		return CombinedResult{}, err
	}
	return CombinedResult{
		ImageProb:          imageProb,
		AQ10Prob:           aq10Prob,
		CombinedProb:       p,
		RecommendationTier: rec.Tier,
		RecommendationText: rec.Text,
	}, nil
}
