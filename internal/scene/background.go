package scene

import "fmt"

// Background algorithm kinds accepted in the model schema and the
// inference_algorithm config option.
const (
	KindPowerSet = "power-set"
)

// Aggregation rules for combining subset scores.
const (
	CombineSum = "sum"
	CombineMax = "max"
)

// BackgroundAlgorithm estimates the probability that an evidence set is
// fully explained as background clutter rather than scene content. Concrete
// strategies are selected by kind through NewBackgroundAlgorithm, so adding
// a strategy does not touch Scene or Model.
type BackgroundAlgorithm interface {
	// Infer returns the background-explanation probability in [0,1] for the
	// given evidence. Evidence whose type is outside the background
	// vocabulary is ignored; it belongs to foreground matching.
	Infer(evidence []ObjectEvidence) float64

	// Learn adds one background observation count for an object type.
	Learn(objectType string)

	// Accepts reports whether objectType belongs to the background
	// vocabulary.
	Accepts(objectType string) bool

	// Kind returns the schema kind string of this strategy.
	Kind() string

	// Config returns the persistable configuration, including current
	// counts, for the model schema round trip.
	Config() BackgroundConfig
}

// BackgroundConfig is the schema representation of a background strategy:
// the kind plus its parameters and learned counts.
type BackgroundConfig struct {
	Kind string `json:"kind"`

	// NoDetectionBaseline is the likelihood weight of an item excluded from
	// a candidate subset, and the result for an empty evidence set.
	NoDetectionBaseline float64 `json:"no_detection_baseline"`

	// CombinationRule is CombineSum or CombineMax.
	CombinationRule string `json:"combination_rule,omitempty"`

	// MaxSubsetItems caps the number of background items considered; the
	// power set has 2^n members, so this bounds an exponential cost.
	MaxSubsetItems int `json:"max_subset_items,omitempty"`

	// Vocabulary lists the object types considered incidental clutter.
	Vocabulary []string `json:"vocabulary"`

	// Counts holds learned per-type observation counts; DefaultCount seeds
	// the default bucket.
	Counts       map[string]float64 `json:"counts,omitempty"`
	DefaultCount float64            `json:"default_count,omitempty"`
}

const (
	defaultNoDetectionBaseline = 0.1
	defaultMaxSubsetItems      = 16
)

// NewBackgroundAlgorithm builds the strategy described by cfg. Unknown kinds
// are a configuration error and abort model loading.
func NewBackgroundAlgorithm(cfg BackgroundConfig) (BackgroundAlgorithm, error) {
	if cfg.NoDetectionBaseline == 0 {
		cfg.NoDetectionBaseline = defaultNoDetectionBaseline
	}
	if cfg.NoDetectionBaseline < 0 || cfg.NoDetectionBaseline > 1 {
		return nil, fmt.Errorf("background: no_detection_baseline %v outside [0,1]", cfg.NoDetectionBaseline)
	}
	if cfg.MaxSubsetItems <= 0 {
		cfg.MaxSubsetItems = defaultMaxSubsetItems
	}
	switch cfg.CombinationRule {
	case "":
		cfg.CombinationRule = CombineSum
	case CombineSum, CombineMax:
	default:
		return nil, fmt.Errorf("background: unknown combination rule %q", cfg.CombinationRule)
	}

	switch cfg.Kind {
	case KindPowerSet:
		return newPowerSetBackground(cfg)
	default:
		return nil, fmt.Errorf("background: unknown inference algorithm %q", cfg.Kind)
	}
}
