package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
)

// InstrumentedClassifier records latency and failures of an image classifier
type InstrumentedClassifier struct {
	next    analysis.ImageClassifier
	model   string
	metrics *Metrics
	logger  *Logger
}

// InstrumentClassifier wraps next so every call is measured and logged
func InstrumentClassifier(next analysis.ImageClassifier, model string, metrics *Metrics, logger *Logger) *InstrumentedClassifier {
	return &InstrumentedClassifier{next: next, model: model, metrics: metrics, logger: logger}
}

// Classify implements analysis.ImageClassifier
func (ic *InstrumentedClassifier) Classify(ctx context.Context, image []byte) (float64, error) {
	start := time.Now()
	p, err := ic.next.Classify(ctx, image)
	duration := time.Since(start)

	ic.metrics.RecordInference(duration, failureKind(err))
	ic.logger.InferenceLogger(ic.model, duration, err)
	return p, err
}

func failureKind(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return string(appErr.Kind)
	}
	return "unknown"
}
