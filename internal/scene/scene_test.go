package scene

import (
	"math"
	"testing"
)

// newBreakfastScene builds a small scene with one tableware role and a
// lamp-only background, used across the scene-level tests.
func newBreakfastScene(t *testing.T) *Scene {
	t.Helper()
	vocab := NewVocabulary()
	foreground := NewProbabilityTable(vocab, 1)
	if err := foreground.Add(0, "cup", 2); err != nil {
		t.Fatal(err)
	}
	if err := foreground.Add(0, "plate", 1); err != nil {
		t.Fatal(err)
	}
	background, err := NewBackgroundAlgorithm(BackgroundConfig{
		Kind:                KindPowerSet,
		NoDetectionBaseline: 0.1,
		Vocabulary:          []string{"lamp"},
		Counts:              map[string]float64{"lamp": 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	roles := []Role{{Name: "tableware", Types: []string{"cup", "plate"}}}
	sc, err := newScene("breakfast", "breakfast table", "meal", 0.6, roles, foreground, background)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestScenePriorRange(t *testing.T) {
	vocab := NewVocabulary()
	_, err := newScene("bad", "", "", 1.5, nil, NewProbabilityTable(vocab, 0), nil)
	if err == nil {
		t.Error("prior outside [0,1] did not error")
	}
}

func TestSceneAccepts(t *testing.T) {
	sc := newBreakfastScene(t)
	for typ, want := range map[string]bool{
		"cup":    true, // foreground role
		"lamp":   true, // background vocabulary
		"teapot": false,
	} {
		if got := sc.Accepts(typ); got != want {
			t.Errorf("Accepts(%q) = %v, want %v", typ, got, want)
		}
	}
}

// fixedVocabBackground is a minimal strategy whose vocabulary is an explicit
// set, used to check that scenes consult the strategy rather than one
// concrete implementation.
type fixedVocabBackground struct {
	vocab map[string]bool
}

func (f *fixedVocabBackground) Infer([]ObjectEvidence) float64 { return 0 }
func (f *fixedVocabBackground) Learn(string)                   {}
func (f *fixedVocabBackground) Accepts(objectType string) bool { return f.vocab[objectType] }
func (f *fixedVocabBackground) Kind() string                   { return "fixed-vocab" }
func (f *fixedVocabBackground) Config() BackgroundConfig       { return BackgroundConfig{Kind: "fixed-vocab"} }

func TestSceneAcceptsDelegatesToBackground(t *testing.T) {
	vocab := NewVocabulary()
	foreground := NewProbabilityTable(vocab, 1)
	roles := []Role{{Name: "tableware", Types: []string{"cup"}}}
	bg := &fixedVocabBackground{vocab: map[string]bool{"candle": true}}
	sc, err := newScene("s", "", "", 0.5, roles, foreground, bg)
	if err != nil {
		t.Fatal(err)
	}

	for typ, want := range map[string]bool{
		"cup":    true,
		"candle": true,
		"teapot": false,
	} {
		if got := sc.Accepts(typ); got != want {
			t.Errorf("Accepts(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestSceneFirstRoleWins(t *testing.T) {
	vocab := NewVocabulary()
	foreground := NewProbabilityTable(vocab, 2)
	roles := []Role{
		{Name: "primary", Types: []string{"cup"}},
		{Name: "secondary", Types: []string{"cup", "plate"}},
	}
	sc, err := newScene("s", "", "", 0.5, roles, foreground, noBackground(t))
	if err != nil {
		t.Fatal(err)
	}

	sc.UpdateFromEvidence(ObjectEvidence{Type: "cup"})
	if got := foreground.Count(0, "cup"); got != 1 {
		t.Errorf("first role count = %v, want 1", got)
	}
	if got := foreground.Count(1, "cup"); got != 0 {
		t.Errorf("second role count = %v, want 0", got)
	}
}

func noBackground(t *testing.T) BackgroundAlgorithm {
	t.Helper()
	bg, err := NewBackgroundAlgorithm(BackgroundConfig{Kind: KindPowerSet})
	if err != nil {
		t.Fatal(err)
	}
	return bg
}

func TestSceneEvidenceKeepsLatestObservation(t *testing.T) {
	sc := newBreakfastScene(t)
	sc.UpdateFromEvidence(ObjectEvidence{ID: "a", Type: "cup", TimestampNs: 1})
	sc.UpdateFromEvidence(ObjectEvidence{ID: "b", Type: "cup", TimestampNs: 2})

	if got := sc.Foreground().Count(0, "cup"); got != 4 {
		t.Errorf("cup count = %v, want 4 (2 seeded + 2 observed)", got)
	}
	if got := sc.observed["cup"].ID; got != "b" {
		t.Errorf("observed cup = %q, want the latest observation %q", got, "b")
	}
}

func TestSceneBackgroundEvidenceOnlyObserved(t *testing.T) {
	sc := newBreakfastScene(t)
	sc.UpdateFromEvidence(ObjectEvidence{Type: "lamp"})

	// Live background detections update the observation set but never the
	// learned background counts.
	if got := sc.Background().Config().Counts["lamp"]; got != 2 {
		t.Errorf("background lamp count = %v, want the seeded 2", got)
	}
	if types := sc.ObservedTypes(); len(types) != 1 || types[0] != "lamp" {
		t.Errorf("observed types = %v, want [lamp]", types)
	}
}

func TestSceneGraphLearningAccumulates(t *testing.T) {
	sc := newBreakfastScene(t)
	example := GraphExample{
		Identifier: "breakfast",
		Evidence: []ObjectEvidence{
			{Type: "cup"},
			{Type: "lamp"},
		},
	}

	sc.UpdateFromSceneGraph(example)
	sc.UpdateFromSceneGraph(example)

	// Learning is additive: the same example twice contributes twice.
	if got := sc.Foreground().Count(0, "cup"); got != 4 {
		t.Errorf("cup count after double integration = %v, want 4", got)
	}
	if got := sc.Background().Config().Counts["lamp"]; got != 4 {
		t.Errorf("lamp count after double integration = %v, want 4", got)
	}
	if len(sc.ObservedTypes()) != 0 {
		t.Error("scene-graph learning must not touch the observation set")
	}
}

func TestSceneCurrentLikelihood(t *testing.T) {
	sc := newBreakfastScene(t)

	// Nothing observed: prior * 1 * (1 - baseline).
	if got, want := sc.CurrentLikelihood(), 0.6*0.9; math.Abs(got-want) > 1e-9 {
		t.Errorf("likelihood with no observations = %v, want %v", got, want)
	}

	// One cup observed: the increment brings cup to 3 of 4 counts.
	sc.UpdateFromEvidence(ObjectEvidence{Type: "cup"})
	if got, want := sc.CurrentLikelihood(), 0.6*0.75*0.9; math.Abs(got-want) > 1e-9 {
		t.Errorf("likelihood with cup observed = %v, want %v", got, want)
	}

	// A lamp observation engages the background: P(lamp)=1.0, so the subset
	// sum saturates and the complement collapses the likelihood to zero.
	sc.UpdateFromEvidence(ObjectEvidence{Type: "lamp"})
	if got := sc.CurrentLikelihood(); got != 0 {
		t.Errorf("likelihood with saturated background = %v, want 0", got)
	}
}

func TestSceneSnapshot(t *testing.T) {
	sc := newBreakfastScene(t)
	sc.UpdateFromEvidence(ObjectEvidence{Type: "cup"})

	snap := sc.Snapshot()
	if snap.SceneID != "breakfast" {
		t.Errorf("snapshot scene id = %q", snap.SceneID)
	}
	if len(snap.Foreground) != 1 || snap.Foreground[0].Role != "tableware" {
		t.Fatalf("snapshot foreground = %+v", snap.Foreground)
	}
	if got := snap.Foreground[0].Counts["cup"]; got != 3 {
		t.Errorf("snapshot cup count = %v, want 3", got)
	}
	if snap.Background.Kind != KindPowerSet {
		t.Errorf("snapshot background kind = %q", snap.Background.Kind)
	}
	if len(snap.Observed) != 1 || snap.Observed[0] != "cup" {
		t.Errorf("snapshot observed = %v", snap.Observed)
	}
}
