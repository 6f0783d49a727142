// Package types holds the JSON shapes of the HTTP API.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
)

// Multipart field names shared by the HTML form and the API
const (
	FormImage     = "image"
	FormImageProb = "image_prob"
)

// ResponseOption is one selectable answer
type ResponseOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// QuestionnaireResponse describes the AQ-10 form
type QuestionnaireResponse struct {
	Items   []analysis.QuestionnaireItem `json:"items"`
	Options []ResponseOption             `json:"options"`
}

// ScoreRequest carries answers keyed by item id, e.g. {"1": 3, "2": 0}
type ScoreRequest struct {
	Responses Answers `json:"responses" binding:"required"`
}

// Answers maps item id to answer. An item given twice is an
// *analysis.InputError rather than last-one-wins.
type Answers map[int]int

func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("responses must be an object keyed by item id")
	}

	out := Answers{}
	problems := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("responses key %q is not an item id", key)
		}
		var v int
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("responses[%q]: %w", key, err)
		}
		if _, dup := out[id]; dup {
			problems["q"+strconv.Itoa(id)] = "duplicate response"
			continue
		}
		out[id] = v
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	if len(problems) > 0 {
		return &analysis.InputError{Problems: problems}
	}
	*a = out
	return nil
}

// CombineRequest carries the two probabilities to fuse. Pointers keep a
// zero probability distinct from a missing one.
type CombineRequest struct {
	ImageProb *float64 `json:"image_prob" binding:"required"`
	AQ10Prob  *float64 `json:"aq10_prob" binding:"required"`
}

// AssessmentResponse is the result of a full screening
type AssessmentResponse struct {
	*analysis.Assessment
	Disclaimer string `json:"disclaimer"`
}

// Disclaimer accompanies every result
const Disclaimer = "This screening tool does not provide a diagnosis. Please consult a qualified professional."

// NewQuestionnaireResponse lists the items with the four answer options
func NewQuestionnaireResponse() QuestionnaireResponse {
	labels := analysis.ResponseLabels()
	opts := make([]ResponseOption, len(labels))
	for i, l := range labels {
		opts[i] = ResponseOption{Value: i, Label: l}
	}
	return QuestionnaireResponse{Items: analysis.Items(), Options: opts}
}
