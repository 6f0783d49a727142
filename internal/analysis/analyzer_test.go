package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	prob  float64
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte) (float64, error) {
	f.calls++
	return f.prob, f.err
}

func newTestAssessor(t *testing.T, c ImageClassifier) *Assessor {
	t.Helper()
	s, err := NewScorer(DefaultScoringConfig())
	require.NoError(t, err)
	a := NewAssessor(s, c)
	a.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAssessor_Assess(t *testing.T) {
	clf := &fakeClassifier{prob: 0.8}
	a := newTestAssessor(t, clf)

	res, err := a.Assess(context.Background(), []byte("img"), uniform(DefinitelyDisagree))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 1, clf.calls)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), res.CreatedAt)
	assert.Equal(t, 6, res.AQ10.Score)
	assert.Equal(t, TierHigh, res.AQ10.Tier)
	assert.InDelta(t, 0.68, res.Combined.CombinedProb, 1e-12)
	assert.Equal(t, TierHigh, res.Combined.RecommendationTier)
	assert.Equal(t, []byte("img"), res.Image)
}

func TestAssessor_Assess_Failures(t *testing.T) {
	missing := uniform(SlightlyAgree)
	delete(missing, 3)

	adapterErr := errors.New("model offline")

	tests := []struct {
		name       string
		classifier *fakeClassifier
		image      []byte
		responses  ResponseSet
		target     error
		calls      int
	}{
		{"missing item skips inference", &fakeClassifier{prob: 0.5}, []byte("img"), missing, ErrInvalidInput, 0},
		{"empty image skips inference", &fakeClassifier{prob: 0.5}, nil, uniform(SlightlyAgree), ErrInvalidInput, 0},
		{"classifier failure propagates", &fakeClassifier{err: adapterErr}, []byte("img"), uniform(SlightlyAgree), adapterErr, 1},
		{"classifier out of range", &fakeClassifier{prob: 1.3}, []byte("img"), uniform(SlightlyAgree), ErrOutOfRange, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssessor(t, tt.classifier)
			res, err := a.Assess(context.Background(), tt.image, tt.responses)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.calls, tt.classifier.calls)
		})
	}
}

func TestAssessor_Evaluate(t *testing.T) {
	a := newTestAssessor(t, &fakeClassifier{})

	res, err := a.Evaluate(0.2, uniform(DefinitelyAgree), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.AQ10.Score)
	assert.InDelta(t, 0.32, res.Combined.CombinedProb, 1e-12)
	assert.Equal(t, TierLow, res.Combined.RecommendationTier)

	rs := uniform(DefinitelyAgree)
	res, err = a.Evaluate(0.2, rs, nil)
	require.NoError(t, err)
	rs[1] = DefinitelyDisagree
	assert.Equal(t, DefinitelyAgree, res.Responses[1])
}
