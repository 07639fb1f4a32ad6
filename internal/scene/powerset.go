package scene

import (
	"sort"
	"sync/atomic"

	"github.com/banshee-data/scene.report/internal/monitoring"
)

// PowerSetBackground evaluates every subset of the background-vocabulary
// evidence as a candidate "true background" explanation and aggregates the
// subset likelihoods. For n items that is exactly 2^n evaluations, so the
// item count is capped by MaxSubsetItems with a deterministic truncation.
type PowerSetBackground struct {
	table    *ProbabilityTable
	baseline float64
	rule     string
	maxItems int

	subsetsEvaluated atomic.Uint64
	truncations      atomic.Uint64
}

func newPowerSetBackground(cfg BackgroundConfig) (*PowerSetBackground, error) {
	vocab := NewVocabulary()
	table := NewProbabilityTable(vocab, 1)
	for _, name := range cfg.Vocabulary {
		table.Register(name)
	}
	for name, count := range cfg.Counts {
		if err := table.Add(0, name, count); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultCount != 0 {
		if err := table.SetDefaultCount(0, cfg.DefaultCount); err != nil {
			return nil, err
		}
	}
	return &PowerSetBackground{
		table:    table,
		baseline: cfg.NoDetectionBaseline,
		rule:     cfg.CombinationRule,
		maxItems: cfg.MaxSubsetItems,
	}, nil
}

// Kind implements BackgroundAlgorithm.
func (p *PowerSetBackground) Kind() string { return KindPowerSet }

// Table returns the background probability table.
func (p *PowerSetBackground) Table() *ProbabilityTable { return p.table }

// Learn implements BackgroundAlgorithm. Learning registers the type if the
// background vocabulary does not contain it yet.
func (p *PowerSetBackground) Learn(objectType string) {
	// row 0 always exists; error is impossible here
	_ = p.table.Increment(0, objectType)
}

// Accepts reports whether objectType belongs to the background vocabulary.
func (p *PowerSetBackground) Accepts(objectType string) bool {
	return p.table.Vocabulary().Contains(objectType)
}

// SubsetsEvaluated returns the total number of subsets scored so far.
func (p *PowerSetBackground) SubsetsEvaluated() uint64 { return p.subsetsEvaluated.Load() }

// Truncations returns how often the item cap forced an approximation.
func (p *PowerSetBackground) Truncations() uint64 { return p.truncations.Load() }

type backgroundItem struct {
	prob        float64
	objectType  string
	timestampNs int64
}

// Infer implements BackgroundAlgorithm.
//
// Each subset S of the background items scores
//
//	product(P_bg(item) for item in S) * product(baseline for item not in S)
//
// and the scores are combined by the configured rule. Sum and max are both
// commutative, and the items are brought into a canonical order first, so
// permuting the input evidence cannot change the result. An empty item set
// yields the no-detection baseline.
func (p *PowerSetBackground) Infer(evidence []ObjectEvidence) float64 {
	items := p.collect(evidence)
	if len(items) == 0 {
		return p.baseline
	}

	if len(items) > p.maxItems {
		// Recoverable overflow: keep the most probable items up to the cap.
		// The sort key is deterministic, so the approximation is still
		// permutation-invariant.
		p.truncations.Add(1)
		monitoring.Logf("power-set: %d background items exceeds cap %d, truncating", len(items), p.maxItems)
		items = items[:p.maxItems]
	}

	n := len(items)
	var sum, best float64
	for mask := 0; mask < 1<<n; mask++ {
		p.subsetsEvaluated.Add(1)
		score := 1.0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				score *= items[i].prob
			} else {
				score *= p.baseline
			}
		}
		sum += score
		if score > best {
			best = score
		}
	}

	result := sum
	if p.rule == CombineMax {
		result = best
	}
	if result > 1 {
		result = 1
	}
	if result < 0 {
		result = 0
	}
	return result
}

// collect filters evidence down to background-vocabulary items and sorts
// them into the canonical evaluation order: probability descending, then
// type, then timestamp. Types outside the vocabulary are skipped with a
// strict lookup; the default-bucket fallback must not pull foreground
// evidence into the background computation.
func (p *PowerSetBackground) collect(evidence []ObjectEvidence) []backgroundItem {
	items := make([]backgroundItem, 0, len(evidence))
	for _, ev := range evidence {
		if _, ok := p.table.Vocabulary().Index(ev.Type); !ok {
			continue
		}
		items = append(items, backgroundItem{
			prob:        p.table.Probability(0, ev.Type),
			objectType:  ev.Type,
			timestampNs: ev.TimestampNs,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].prob != items[j].prob {
			return items[i].prob > items[j].prob
		}
		if items[i].objectType != items[j].objectType {
			return items[i].objectType < items[j].objectType
		}
		return items[i].timestampNs < items[j].timestampNs
	})
	return items
}

// Config implements BackgroundAlgorithm. Counts round-trip losslessly.
func (p *PowerSetBackground) Config() BackgroundConfig {
	vocab := p.table.Vocabulary().Names()
	return BackgroundConfig{
		Kind:                KindPowerSet,
		NoDetectionBaseline: p.baseline,
		CombinationRule:     p.rule,
		MaxSubsetItems:      p.maxItems,
		Vocabulary:          vocab[1:], // default bucket is implicit
		Counts:              p.table.RowCounts(0),
		DefaultCount:        p.table.DefaultCount(0),
	}
}
