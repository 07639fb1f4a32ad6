package scene

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// testDoc is the two-scene model used across the model tests: a breakfast
// scene keyed on tableware and an office scene keyed on books.
func testDoc() *SchemaDoc {
	return &SchemaDoc{
		Version:    SchemaVersion,
		Vocabulary: []string{"cup", "plate", "book"},
		Scenes: []SceneSchema{
			{
				ID:          "breakfast",
				Description: "breakfast table",
				Type:        "meal",
				Prior:       0.6,
				Roles: []RoleSchema{
					{Name: "tableware", Types: []string{"cup", "plate"}, Counts: map[string]float64{"cup": 2, "plate": 1}},
				},
				Background: BackgroundConfig{
					Kind:                KindPowerSet,
					NoDetectionBaseline: 0.1,
					Vocabulary:          []string{"lamp"},
					Counts:              map[string]float64{"lamp": 2},
				},
			},
			{
				ID:          "office",
				Description: "office desk",
				Type:        "workspace",
				Prior:       0.4,
				Roles: []RoleSchema{
					{Name: "desk", Types: []string{"book"}, Counts: map[string]float64{"book": 4}},
				},
				Background: BackgroundConfig{
					Kind:                KindPowerSet,
					NoDetectionBaseline: 0.1,
					Vocabulary:          []string{"plant"},
				},
			},
		},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(testDoc(), KindPowerSet)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	return m
}

func TestNewModelRejectsInvalidDoc(t *testing.T) {
	doc := testDoc()
	doc.Version = 99
	if _, err := NewModel(doc, KindPowerSet); err == nil {
		t.Error("invalid schema version did not error")
	}
}

func TestNewModelDefaultAlgorithm(t *testing.T) {
	doc := testDoc()
	doc.Scenes[0].Background.Kind = ""
	m, err := NewModel(doc, KindPowerSet)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	snap, err := m.SceneTable("breakfast")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Background.Kind != KindPowerSet {
		t.Errorf("background kind = %q, want the configured default", snap.Background.Kind)
	}
}

func TestModelRecomputeNormalizes(t *testing.T) {
	m := newTestModel(t)
	m.IntegrateEvidence(ObjectEvidence{Type: "cup"})
	m.Recompute()

	var sum float64
	for _, id := range m.RankedScenes() {
		sum += id.Likelihood
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("likelihoods sum to %v, want 1.0", sum)
	}
}

func TestModelRecomputeZeroTotalIsUniform(t *testing.T) {
	doc := testDoc()
	doc.Scenes[0].Prior = 0
	doc.Scenes[1].Prior = 0
	m, err := NewModel(doc, KindPowerSet)
	if err != nil {
		t.Fatal(err)
	}
	m.Recompute()

	for _, id := range m.RankedScenes() {
		if math.Abs(id.Likelihood-0.5) > 1e-9 {
			t.Errorf("scene %s likelihood = %v, want uniform 0.5", id.SceneID, id.Likelihood)
		}
	}
}

func TestModelRankedScenesOrdering(t *testing.T) {
	m := newTestModel(t)
	m.IntegrateEvidence(ObjectEvidence{Type: "book"})
	m.Recompute()

	ranked := m.RankedScenes()
	if len(ranked) != 2 {
		t.Fatalf("ranked %d scenes, want 2", len(ranked))
	}
	if ranked[0].Likelihood < ranked[1].Likelihood {
		t.Errorf("ranked list not descending: %v then %v", ranked[0].Likelihood, ranked[1].Likelihood)
	}
}

func TestModelRankedScenesTieBreak(t *testing.T) {
	doc := testDoc()
	doc.Scenes[0].Prior = 0
	doc.Scenes[1].Prior = 0
	m, err := NewModel(doc, KindPowerSet)
	if err != nil {
		t.Fatal(err)
	}
	m.Recompute()

	// Uniform likelihoods tie; scene ID breaks the tie.
	ranked := m.RankedScenes()
	if ranked[0].SceneID != "breakfast" || ranked[1].SceneID != "office" {
		t.Errorf("tie-broken order = [%s %s], want [breakfast office]", ranked[0].SceneID, ranked[1].SceneID)
	}
}

func TestModelUnacceptedEvidenceIsNoOp(t *testing.T) {
	m := newTestModel(t)
	m.Recompute()
	before := m.RankedScenes()

	m.IntegrateEvidence(ObjectEvidence{Type: "teapot"})
	m.Recompute()

	if diff := cmp.Diff(before, m.RankedScenes()); diff != "" {
		t.Errorf("unaccepted evidence changed the ranked list (-before +after):\n%s", diff)
	}
}

func TestModelStrictVocabulary(t *testing.T) {
	// Evidence of type lamp is accepted by the breakfast background but lamp
	// is not in the shared vocabulary, so strict mode rejects it.
	m := newTestModel(t)
	m.Recompute()
	before := m.RankedScenes()

	m.SetStrictVocabulary(true)
	m.IntegrateEvidence(ObjectEvidence{Type: "lamp"})
	m.Recompute()
	if diff := cmp.Diff(before, m.RankedScenes()); diff != "" {
		t.Errorf("strict mode integrated unregistered evidence:\n%s", diff)
	}

	m.SetStrictVocabulary(false)
	m.IntegrateEvidence(ObjectEvidence{Type: "lamp"})
	m.Recompute()
	if diff := cmp.Diff(before, m.RankedScenes()); diff == "" {
		t.Error("non-strict mode ignored background evidence it should integrate")
	}
}

func TestModelIntegrateSceneGraphUnknownScene(t *testing.T) {
	m := newTestModel(t)
	err := m.IntegrateSceneGraph(GraphExample{Identifier: "garage"})
	if !errors.Is(err, ErrUnknownScene) {
		t.Errorf("err = %v, want ErrUnknownScene", err)
	}
}

func TestModelSceneGraphLearning(t *testing.T) {
	m := newTestModel(t)
	example := GraphExample{
		Identifier: "breakfast",
		Evidence:   []ObjectEvidence{{Type: "cup"}, {Type: "lamp"}},
	}
	if err := m.IntegrateSceneGraph(example); err != nil {
		t.Fatal(err)
	}
	if err := m.IntegrateSceneGraph(example); err != nil {
		t.Fatal(err)
	}

	snap, err := m.SceneTable("breakfast")
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Foreground[0].Counts["cup"]; got != 4 {
		t.Errorf("cup count = %v, want 4 after learning the example twice", got)
	}
	if got := snap.Background.Counts["lamp"]; got != 4 {
		t.Errorf("background lamp count = %v, want 4", got)
	}
}

func TestModelSaveLoadRoundTrip(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.IntegrateSceneGraph(GraphExample{
		Identifier: "office",
		Evidence:   []ObjectEvidence{{Type: "book"}, {Type: "plant"}},
	}))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.SaveModel(path))

	loaded, err := LoadModel(path, KindPowerSet)
	require.NoError(t, err)

	// Counts and priors round-trip losslessly, so the same live evidence
	// must produce an identical ranked list.
	evidence := []ObjectEvidence{{Type: "cup"}, {Type: "book"}}
	for _, ev := range evidence {
		m.IntegrateEvidence(ev)
		loaded.IntegrateEvidence(ev)
	}
	m.Recompute()
	loaded.Recompute()

	if diff := cmp.Diff(m.RankedScenes(), loaded.RankedScenes()); diff != "" {
		t.Errorf("reloaded model ranks differently (-orig +loaded):\n%s", diff)
	}
}
