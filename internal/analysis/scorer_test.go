package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(r Response) ResponseSet {
	rs := ResponseSet{}
	for id := 1; id <= ItemCount; id++ {
		rs[id] = r
	}
	return rs
}

// withScore builds a response set scoring exactly n by flipping items to
// their point-earning answer in id order.
func withScore(n int) ResponseSet {
	rs := ResponseSet{}
	for _, it := range Items() {
		scoring, neutral := SlightlyAgree, SlightlyDisagree
		if it.Polarity == NonAutismIndicator {
			scoring, neutral = SlightlyDisagree, SlightlyAgree
		}
		if n > 0 {
			rs[it.ID] = scoring
			n--
		} else {
			rs[it.ID] = neutral
		}
	}
	return rs
}

func TestScoreResponses(t *testing.T) {
	th := DefaultScoringConfig().AQ10

	tests := []struct {
		name      string
		responses ResponseSet
		score     int
		tier      Tier
		prob      float64
	}{
		{"all definitely disagree", uniform(DefinitelyDisagree), 6, TierHigh, 0.6},
		{"all definitely agree", uniform(DefinitelyAgree), 4, TierModerate, 0.4},
		{"all slightly disagree", uniform(SlightlyDisagree), 6, TierHigh, 0.6},
		{"all slightly agree", uniform(SlightlyAgree), 4, TierModerate, 0.4},
		{"score six is high", withScore(6), 6, TierHigh, 0.6},
		{"score five is moderate", withScore(5), 5, TierModerate, 0.5},
		{"score four is moderate", withScore(4), 4, TierModerate, 0.4},
		{"score three is low", withScore(3), 3, TierLow, 0.3},
		{"score zero is low", withScore(0), 0, TierLow, 0},
		{"score ten is high", withScore(10), 10, TierHigh, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ScoreResponses(tt.responses, th)
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.tier, res.Tier)
			assert.Equal(t, tt.prob, res.Probability)
			assert.Equal(t, Interpretation(tt.tier), res.Interpretation)
		})
	}
}

func TestScoreResponses_ProbabilityIsScoreOverTen(t *testing.T) {
	for n := 0; n <= ItemCount; n++ {
		res, err := ScoreResponses(withScore(n), DefaultScoringConfig().AQ10)
		require.NoError(t, err)
		assert.Equal(t, n, res.Score)
		assert.Equal(t, float64(n)/10.0, res.Probability)
	}
}

func TestScoreResponses_InvalidInput(t *testing.T) {
	missing := uniform(SlightlyAgree)
	delete(missing, 3)

	extra := uniform(SlightlyAgree)
	extra[11] = SlightlyAgree

	outOfRange := uniform(SlightlyAgree)
	outOfRange[7] = Response(4)

	negative := uniform(SlightlyAgree)
	negative[1] = Response(-1)

	tests := []struct {
		name      string
		responses ResponseSet
		field     string
	}{
		{"missing item three", missing, "q3"},
		{"unknown item eleven", extra, "q11"},
		{"value above three", outOfRange, "q7"},
		{"negative value", negative, "q1"},
		{"empty set", ResponseSet{}, "q10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ScoreResponses(tt.responses, DefaultScoringConfig().AQ10)
			require.Error(t, err)
			assert.Equal(t, AQ10Result{}, res)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var inErr *InputError
			require.True(t, errors.As(err, &inErr))
			assert.Contains(t, inErr.Problems, tt.field)
		})
	}
}

func TestCombine(t *testing.T) {
	w := DefaultScoringConfig().Weights

	tests := []struct {
		name     string
		image    float64
		aq10     float64
		expected float64
	}{
		{"both one", 1, 1, 1},
		{"both zero", 0, 0, 0},
		{"both half", 0.5, 0.5, 0.5},
		{"image only", 1, 0, 0.4},
		{"survey only", 0, 1, 0.6},
		{"mixed", 0.8, 0.6, 0.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Combine(tt.image, tt.aq10, w)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestCombine_RejectsOutOfRange(t *testing.T) {
	w := DefaultScoringConfig().Weights

	tests := []struct {
		name  string
		image float64
		aq10  float64
		field string
	}{
		{"image above one", 1.01, 0.5, "image_prob"},
		{"image negative", -0.1, 0.5, "image_prob"},
		{"image NaN", math.NaN(), 0.5, "image_prob"},
		{"aq10 above one", 0.5, 2, "aq10_prob"},
		{"aq10 infinite", 0.5, math.Inf(1), "aq10_prob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Combine(tt.image, tt.aq10, w)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfRange))

			var rErr *RangeError
			require.True(t, errors.As(err, &rErr))
			assert.Equal(t, tt.field, rErr.Field)
		})
	}
}

func TestCombine_CustomWeights(t *testing.T) {
	got, err := Combine(1, 0, Weights{Image: 0.5, AQ10: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestCombine_RejectsInvalidWeights(t *testing.T) {
	tests := []struct {
		name    string
		image   float64
		aq10    float64
		weights Weights
	}{
		{"sum above one", 1, 1, Weights{Image: 1, AQ10: 1}},
		{"negative weight", 0.5, 0.5, Weights{Image: -1, AQ10: 0}},
		{"sum below one", 0.2, 0.2, Weights{Image: 0.1, AQ10: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Combine(tt.image, tt.aq10, tt.weights)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Zero(t, got)
		})
	}
}

func TestSnapUnit(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
		hasError bool
	}{
		{"inside", 0.68, 0.68, false},
		{"rounding above one", 1.0000000000000002, 1, false},
		{"rounding below zero", -1e-17, 0, false},
		{"far above one", 1.5, 0, true},
		{"far below zero", -0.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snapUnit("combined_prob", tt.x)
			if tt.hasError {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRecommend(t *testing.T) {
	th := DefaultScoringConfig().Combined

	tests := []struct {
		name string
		p    float64
		tier Tier
	}{
		{"exactly high bound", 0.6, TierHigh},
		{"just below high bound", 0.599999, TierModerate},
		{"exactly moderate bound", 0.4, TierModerate},
		{"just below moderate bound", 0.399999, TierLow},
		{"zero", 0, TierLow},
		{"one", 1, TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Recommend(tt.p, th)
			require.NoError(t, err)
			assert.Equal(t, tt.tier, rec.Tier)
			assert.Equal(t, RecommendationText(tt.tier), rec.Text)
			assert.NotEmpty(t, rec.Text)
		})
	}
}

func TestRecommend_RejectsOutOfRange(t *testing.T) {
	for _, p := range []float64{-0.01, 1.5, math.NaN()} {
		_, err := Recommend(p, DefaultScoringConfig().Combined)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestScorer_Evaluate(t *testing.T) {
	s, err := NewScorer(DefaultScoringConfig())
	require.NoError(t, err)

	aq, combined, err := s.Evaluate(0.8, uniform(DefinitelyDisagree))
	require.NoError(t, err)

	assert.Equal(t, 6, aq.Score)
	assert.Equal(t, TierHigh, aq.Tier)
	assert.Equal(t, 0.6, aq.Probability)
	assert.InDelta(t, 0.68, combined.CombinedProb, 1e-12)
	assert.Equal(t, TierHigh, combined.RecommendationTier)
	assert.Equal(t, 0.8, combined.ImageProb)
	assert.Equal(t, 0.6, combined.AQ10Prob)
}

func TestNewScorer_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Weights = Weights{Image: 0.5, AQ10: 0.6}

	s, err := NewScorer(cfg)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScorer_UsesConfiguredThresholds(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.AQ10 = AQ10Thresholds{High: 8, Moderate: 6}
	cfg.Combined = CombinedThresholds{High: 0.7, Moderate: 0.5}
	s, err := NewScorer(cfg)
	require.NoError(t, err)

	aq, err := s.ScoreQuestionnaire(uniform(DefinitelyDisagree))
	require.NoError(t, err)
	assert.Equal(t, TierModerate, aq.Tier)

	rec, err := s.Recommend(0.65)
	require.NoError(t, err)
	assert.Equal(t, TierModerate, rec.Tier)
}

func TestScorer_CombineProbabilities(t *testing.T) {
	s, err := NewScorer(DefaultScoringConfig())
	require.NoError(t, err)

	res, err := s.CombineProbabilities(0.5, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.38, res.CombinedProb, 1e-12)
	assert.Equal(t, TierLow, res.RecommendationTier)
	assert.Equal(t, RecommendationText(TierLow), res.RecommendationText)

	_, err = s.CombineProbabilities(0.5, 1.01)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
