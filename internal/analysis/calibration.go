package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Weights are the contributions of the image and questionnaire probabilities
// to the combined risk.
type Weights struct {
	Image float64 `json:"image"`
	AQ10  float64 `json:"aq10"`
}

const weightTolerance = 1e-9

// Validate requires non-negative weights that sum to 1.
func (w Weights) Validate() error {
	if math.IsNaN(w.Image) || math.IsNaN(w.AQ10) || w.Image < 0 || w.AQ10 < 0 {
		return fmt.Errorf("%w: weights must be non-negative, got image=%v aq10=%v", ErrInvalidConfig, w.Image, w.AQ10)
	}
	if sum := w.Image + w.AQ10; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %v", ErrInvalidConfig, sum)
	}
	return nil
}

// AQ10Thresholds are inclusive lower bounds on the integer questionnaire score.
type AQ10Thresholds struct {
	High     int `json:"high"`
	Moderate int `json:"moderate"`
}

func (t AQ10Thresholds) Validate() error {
	if t.Moderate < 0 || t.Moderate > t.High || t.High > ItemCount {
		return fmt.Errorf("%w: aq10 thresholds need 0 <= moderate <= high <= %d, got moderate=%d high=%d",
			ErrInvalidConfig, ItemCount, t.Moderate, t.High)
	}
	return nil
}

// CombinedThresholds are inclusive lower bounds on the combined probability.
type CombinedThresholds struct {
	High     float64 `json:"high"`
	Moderate float64 `json:"moderate"`
}

func (t CombinedThresholds) Validate() error {
	if !(t.Moderate >= 0 && t.Moderate <= t.High && t.High <= 1) {
		return fmt.Errorf("%w: combined thresholds need 0 <= moderate <= high <= 1, got moderate=%v high=%v",
			ErrInvalidConfig, t.Moderate, t.High)
	}
	return nil
}

// ScoringConfig holds every tunable constant of the scoring pipeline. It is
// loaded once and passed by value afterwards.
type ScoringConfig struct {
	Weights  Weights            `json:"weights"`
	AQ10     AQ10Thresholds     `json:"aq10_thresholds"`
	Combined CombinedThresholds `json:"combined_thresholds"`
}

// DefaultScoringConfig returns the published AQ-10 cut-offs and the 40/60
// image/questionnaire split.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights:  Weights{Image: 0.4, AQ10: 0.6},
		AQ10:     AQ10Thresholds{High: 6, Moderate: 4},
		Combined: CombinedThresholds{High: 0.6, Moderate: 0.4},
	}
}

func (c ScoringConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.AQ10.Validate(); err != nil {
		return err
	}
	return c.Combined.Validate()
}

// ConfigStore reads and writes a scoring configuration file.
type ConfigStore struct {
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load returns the stored configuration, or the defaults when no path is set
// or the file does not exist. Fields absent from the file keep their defaults.
func (s *ConfigStore) Load() (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if s.path == "" {
		return cfg, nil
	}

	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return ScoringConfig{}, fmt.Errorf("failed to open scoring config: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return ScoringConfig{}, fmt.Errorf("failed to decode scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ScoringConfig{}, err
	}
	return cfg, nil
}

// Save writes cfg after validating it.
func (s *ConfigStore) Save(cfg ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create scoring config directory: %w", err)
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create scoring config: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode scoring config: %w", err)
	}
	return nil
}
