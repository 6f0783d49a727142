package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/resilience"
)

// TFServingConfig locates a model on a TensorFlow Serving REST endpoint.
type TFServingConfig struct {
	BaseURL   string
	ModelName string
	Timeout   time.Duration
}

// TFServingClassifier sends preprocessed images to TensorFlow Serving and
// reads the single sigmoid output. Inference is never retried.
type TFServingClassifier struct {
	cfg   TFServingConfig
	model ModelHandle
	pool  *resilience.ConnectionPool
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// NewTFServingClassifier creates a classifier for the given artifact. pool
// may be nil, in which case one with its own circuit breaker is built.
func NewTFServingClassifier(cfg TFServingConfig, model ModelHandle, pool *resilience.ConnectionPool) *TFServingClassifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if pool == nil {
		cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "inference",
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
		})
		poolCfg := resilience.DefaultPoolConfig()
		poolCfg.Timeout = cfg.Timeout
		pool = resilience.NewConnectionPool(poolCfg, cb)
	}
	return &TFServingClassifier{cfg: cfg, model: model, pool: pool}
}

func (c *TFServingClassifier) predictURL() string {
	return fmt.Sprintf("%s/v1/models/%s:predict", c.cfg.BaseURL, c.cfg.ModelName)
}

// Classify returns P(autistic) for one facial image.
func (c *TFServingClassifier) Classify(ctx context.Context, image []byte) (float64, error) {
	tensor, err := Preprocess(image)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(predictRequest{Instances: []Tensor{tensor}})
	if err != nil {
		return 0, errors.NewAdapterError(errors.AdapterInference, "failed to encode inference request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.pool.DoRequest(ctx, http.MethodPost, c.predictURL(), bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return 0, errors.NewAdapterError(errors.AdapterUnavailable, "image model unavailable", err)
	}
	defer resp.Body.Close()

	var pr predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pr); err != nil {
		return 0, errors.NewAdapterError(errors.AdapterInference, "malformed inference response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.NewAdapterError(errors.AdapterInference,
			fmt.Sprintf("inference rejected with status %d", resp.StatusCode), stderrors.New(pr.Error))
	}
	if len(pr.Predictions) == 0 || len(pr.Predictions[0]) == 0 {
		return 0, errors.NewAdapterError(errors.AdapterInference, "inference response has no prediction", nil)
	}

	p := pr.Predictions[0][0]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, errors.NewAdapterError(errors.AdapterInference, fmt.Sprintf("prediction %v outside [0,1]", p), nil)
	}

	slog.Debug("Image classified", "model", c.cfg.ModelName, "artifact_sha256", c.model.SHA256, "probability", p)
	return p, nil
}

// Ready reports whether the model server has a version of the model loaded.
func (c *TFServingClassifier) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/models/%s", c.cfg.BaseURL, c.cfg.ModelName)
	resp, err := c.pool.DoRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "image model unavailable", err)
	}
	defer resp.Body.Close()

	var status modelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "malformed model status", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return errors.NewAdapterError(errors.AdapterUnavailable, "no model version is available", nil)
}

// StaticClassifier returns a fixed probability after checking the image
// decodes. It backs the command line's --image-prob flag and tests.
type StaticClassifier struct {
	Probability float64
}

func (s StaticClassifier) Classify(ctx context.Context, image []byte) (float64, error) {
	if _, _, err := DecodeImage(image); err != nil {
		return 0, err
	}
	return s.Probability, nil
}
