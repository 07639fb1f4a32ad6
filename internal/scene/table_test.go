package scene

import (
	"math"
	"testing"
)

func TestTableNormalizeRowSums(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 2)
	if err := table.Add(0, "cup", 2); err != nil {
		t.Fatal(err)
	}
	if err := table.Add(0, "plate", 1); err != nil {
		t.Fatal(err)
	}
	if err := table.Add(1, "fork", 5); err != nil {
		t.Fatal(err)
	}
	table.Normalize()

	for row := 0; row < table.Rows(); row++ {
		var sum float64
		for _, name := range table.Vocabulary().Names() {
			sum += table.Probability(row, name)
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("row %d probabilities sum to %v, want 1.0", row, sum)
		}
	}
}

func TestTableCupPlateDistribution(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	for _, name := range []string{"cup", "cup", "plate"} {
		if err := table.Increment(0, name); err != nil {
			t.Fatal(err)
		}
	}

	if got := table.Probability(0, "cup"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("P(cup) = %v, want 2/3", got)
	}
	if got := table.Probability(0, "plate"); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("P(plate) = %v, want 1/3", got)
	}
}

func TestTableZeroRowStaysZero(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	table.Register("cup")
	table.Normalize()
	if got := table.Probability(0, "cup"); got != 0 {
		t.Errorf("P(cup) on an all-zero row = %v, want 0", got)
	}
}

func TestTableDefaultBucketFallback(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	if err := table.Add(0, "cup", 3); err != nil {
		t.Fatal(err)
	}
	if err := table.SetDefaultCount(0, 1); err != nil {
		t.Fatal(err)
	}

	// An unregistered type resolves through the default bucket.
	if got := table.Probability(0, "teapot"); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("P(unseen type) = %v, want 0.25", got)
	}
}

func TestTableLazyRenormalize(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	if err := table.Increment(0, "cup"); err != nil {
		t.Fatal(err)
	}
	if got := table.Probability(0, "cup"); got != 1.0 {
		t.Fatalf("P(cup) = %v, want 1.0", got)
	}

	// A count mutation invalidates the cached distribution; the next read
	// must reflect it without an explicit Normalize call.
	if err := table.Increment(0, "plate"); err != nil {
		t.Fatal(err)
	}
	if got := table.Probability(0, "cup"); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("P(cup) after new count = %v, want 0.5", got)
	}
}

func TestTableRowCountsExcludesDefault(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	if err := table.Add(0, "cup", 2); err != nil {
		t.Fatal(err)
	}
	if err := table.SetDefaultCount(0, 7); err != nil {
		t.Fatal(err)
	}

	counts := table.RowCounts(0)
	if len(counts) != 1 || counts["cup"] != 2 {
		t.Errorf("RowCounts = %v, want map[cup:2]", counts)
	}
	if got := table.DefaultCount(0); got != 7 {
		t.Errorf("DefaultCount = %v, want 7", got)
	}
}

func TestTableOutOfRangeRow(t *testing.T) {
	table := NewProbabilityTable(NewVocabulary(), 1)
	if err := table.Add(5, "cup", 1); err == nil {
		t.Error("Add on an out-of-range row did not error")
	}
	if got := table.Probability(5, "cup"); got != 0 {
		t.Errorf("Probability on an out-of-range row = %v, want 0", got)
	}
}
