package scene

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ProbabilityTable is a rows x columns matrix of non-negative observation
// counts, with columns indexed through a Vocabulary. Rows typically stand for
// scene roles; columns for object types. Raw counts are kept separately from
// the normalized probabilities so that persistence stays lossless: the
// schema stores counts, never normalized values.
type ProbabilityTable struct {
	vocab  *Vocabulary
	counts [][]float64

	// probs holds the per-row normalized values. Rebuilt by Normalize and
	// invalidated by any count mutation.
	probs      [][]float64
	normalized bool
}

// NewProbabilityTable returns a table with the given number of rows over
// vocab. The vocabulary may be shared between tables; each table keeps its
// column width in sync with the vocabulary on access.
func NewProbabilityTable(vocab *Vocabulary, rows int) *ProbabilityTable {
	t := &ProbabilityTable{vocab: vocab}
	for i := 0; i < rows; i++ {
		t.AddRow()
	}
	return t
}

// Vocabulary returns the backing vocabulary.
func (t *ProbabilityTable) Vocabulary() *Vocabulary { return t.vocab }

// Rows returns the number of rows. Rows never shrink.
func (t *ProbabilityTable) Rows() int { return len(t.counts) }

// Columns returns the current column count (the vocabulary size).
func (t *ProbabilityTable) Columns() int { return t.vocab.Len() }

// AddRow appends an all-zero row and returns its index.
func (t *ProbabilityTable) AddRow() int {
	t.counts = append(t.counts, make([]float64, t.vocab.Len()))
	t.normalized = false
	return len(t.counts) - 1
}

// growRow widens row r to the current vocabulary size. Vocabulary growth
// never invalidates previously returned indices, so widening is append-only.
func (t *ProbabilityTable) growRow(r int) {
	for len(t.counts[r]) < t.vocab.Len() {
		t.counts[r] = append(t.counts[r], 0)
	}
}

// Register registers an object type in the vocabulary and returns its column
// index. Registration is a learning-time operation; pure inference resolves
// unseen types through the default bucket instead.
func (t *ProbabilityTable) Register(name string) int {
	idx := t.vocab.Register(name)
	t.normalized = false
	return idx
}

// Increment adds one observation count at (row, name), registering name if
// needed. Returns an error for an out-of-range row.
func (t *ProbabilityTable) Increment(row int, name string) error {
	return t.Add(row, name, 1)
}

// Add adds count observations at (row, name), registering name if needed.
func (t *ProbabilityTable) Add(row int, name string, count float64) error {
	if row < 0 || row >= len(t.counts) {
		return fmt.Errorf("probability table: row %d out of range (rows=%d)", row, len(t.counts))
	}
	idx := t.vocab.Register(name)
	t.growRow(row)
	t.counts[row][idx] += count
	t.normalized = false
	return nil
}

// SetDefaultCount seeds the default bucket's count for a row directly. Used
// to model the expected "some unknown object" mass.
func (t *ProbabilityTable) SetDefaultCount(row int, count float64) error {
	if row < 0 || row >= len(t.counts) {
		return fmt.Errorf("probability table: row %d out of range (rows=%d)", row, len(t.counts))
	}
	t.growRow(row)
	t.counts[row][0] = count
	t.normalized = false
	return nil
}

// Count returns the raw count at (row, name), with name resolved through the
// default-bucket fallback. Out-of-range rows yield 0.
func (t *ProbabilityTable) Count(row int, name string) float64 {
	if row < 0 || row >= len(t.counts) {
		return 0
	}
	t.growRow(row)
	return t.counts[row][t.vocab.Lookup(name)]
}

// Normalize recomputes the per-row probabilities so every row with a nonzero
// sum divides out to 1.0. All-zero rows stay all-zero; there is no
// divide-by-zero case.
func (t *ProbabilityTable) Normalize() {
	t.probs = make([][]float64, len(t.counts))
	for r := range t.counts {
		t.growRow(r)
		row := make([]float64, len(t.counts[r]))
		copy(row, t.counts[r])
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
		t.probs[r] = row
	}
	t.normalized = true
}

// Normalized reports whether the probabilities are current with the counts.
func (t *ProbabilityTable) Normalized() bool { return t.normalized }

// Probability returns the normalized value at (row, name). Unseen names
// resolve to the default bucket; out-of-range rows yield 0. The table
// renormalizes itself lazily if counts changed since the last Normalize, so
// callers interleaving learning and inference always see a proper
// distribution.
func (t *ProbabilityTable) Probability(row int, name string) float64 {
	if row < 0 || row >= len(t.counts) {
		return 0
	}
	if !t.normalized {
		t.Normalize()
	}
	idx := t.vocab.Lookup(name)
	if idx >= len(t.probs[row]) {
		return 0
	}
	return t.probs[row][idx]
}

// RowSum returns the raw count sum of a row.
func (t *ProbabilityTable) RowSum(row int) float64 {
	if row < 0 || row >= len(t.counts) {
		return 0
	}
	return floats.Sum(t.counts[row])
}

// RowCounts returns the nonzero raw counts of a row keyed by type name.
// Used for persistence and for table snapshots served over the API.
func (t *ProbabilityTable) RowCounts(row int) map[string]float64 {
	out := make(map[string]float64)
	if row < 0 || row >= len(t.counts) {
		return out
	}
	for i, c := range t.counts[row] {
		if c != 0 && i != 0 {
			out[t.vocab.Name(i)] = c
		}
	}
	return out
}

// DefaultCount returns the default bucket's raw count for a row.
func (t *ProbabilityTable) DefaultCount(row int) float64 {
	if row < 0 || row >= len(t.counts) {
		return 0
	}
	t.growRow(row)
	return t.counts[row][0]
}
