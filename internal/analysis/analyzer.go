package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImageClassifier returns the probability that a facial image belongs to the
// autistic class.
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) (float64, error)
}

// Assessor orchestrates a full screening: questionnaire, image model,
// combination and recommendation.
type Assessor struct {
	scorer     *Scorer
	classifier ImageClassifier
	now        func() time.Time
}

// NewAssessor creates an assessor over a validated scorer
func NewAssessor(scorer *Scorer, classifier ImageClassifier) *Assessor {
	return &Assessor{
		scorer:     scorer,
		classifier: classifier,
		now:        time.Now,
	}
}

func (a *Assessor) Scorer() *Scorer { return a.scorer }

// Assess scores the responses first so malformed input never reaches the
// image model, then classifies the image exactly once.
func (a *Assessor) Assess(ctx context.Context, image []byte, rs ResponseSet) (*Assessment, error) {
	aq, err := a.scorer.ScoreQuestionnaire(rs)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, &InputError{Problems: map[string]string{"image": "image is required"}}
	}

	imageProb, err := a.classifier.Classify(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("image classification failed: %w", err)
	}

	return a.assemble(imageProb, aq, rs, image)
}

// Evaluate produces an assessment from a probability computed elsewhere.
func (a *Assessor) Evaluate(imageProb float64, rs ResponseSet, image []byte) (*Assessment, error) {
	aq, err := a.scorer.ScoreQuestionnaire(rs)
	if err != nil {
		return nil, err
	}
	return a.assemble(imageProb, aq, rs, image)
}

func (a *Assessor) assemble(imageProb float64, aq AQ10Result, rs ResponseSet, image []byte) (*Assessment, error) {
	combined, err := a.scorer.CombineWith(imageProb, aq)
	if err != nil {
		return nil, err
	}
	return &Assessment{
		ID:        uuid.NewString(),
		CreatedAt: a.now().UTC(),
		Responses: rs.Clone(),
		AQ10:      aq,
		Combined:  combined,
		Image:     image,
	}, nil
}
