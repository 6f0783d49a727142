package analysis

import "math"

// checkProbability rejects NaN and values outside [0,1]. Values are never
// clamped on the way in.
func checkProbability(field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &RangeError{Field: field, Value: p}
	}
	return nil
}

// roundingSlack covers float error in a weighted sum whose weights are
// within weightTolerance of 1.
const roundingSlack = 4 * weightTolerance

// snapUnit pulls x onto [0,1] when it misses only by rounding, such as
// 1.0000000000000002. Anything further out is a RangeError.
func snapUnit(field string, x float64) (float64, error) {
	switch {
	case x > 1 && x-1 <= roundingSlack:
		return 1, nil
	case x < 0 && -x <= roundingSlack:
		return 0, nil
	}
	if err := checkProbability(field, x); err != nil {
		return 0, err
	}
	return x, nil
}
