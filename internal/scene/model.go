package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/scene.report/internal/monitoring"
)

// ErrUnknownScene is returned when a scene graph names a scene the model
// does not contain. This is a configuration error, not a runtime skip.
var ErrUnknownScene = errors.New("unknown scene identifier")

// Model owns the full set of scenes, routes evidence and learning examples
// to them, and produces the ranked result list. All scene instances and
// their tables are owned exclusively by the model; methods take the model
// lock, so a scene is only ever touched by one goroutine at a time.
type Model struct {
	mu     sync.RWMutex
	vocab  *Vocabulary
	scenes []*Scene
	byID   map[string]*Scene

	// strict rejects evidence of types absent from the shared vocabulary
	// instead of letting tables fold them into the default bucket.
	strict bool
}

// NewModel builds a model from a validated schema document. The configured
// algorithm kind is applied to scenes whose schema omits one.
func NewModel(doc *SchemaDoc, defaultAlgorithm string) (*Model, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		vocab: NewVocabulary(),
		byID:  make(map[string]*Scene),
	}
	for _, name := range doc.Vocabulary {
		m.vocab.Register(name)
	}

	for _, ss := range doc.Scenes {
		bgCfg := ss.Background
		if bgCfg.Kind == "" {
			bgCfg.Kind = defaultAlgorithm
		}
		background, err := NewBackgroundAlgorithm(bgCfg)
		if err != nil {
			return nil, fmt.Errorf("scene %q: %w", ss.ID, err)
		}

		roles := make([]Role, len(ss.Roles))
		foreground := NewProbabilityTable(m.vocab, len(ss.Roles))
		for row, rs := range ss.Roles {
			roles[row] = Role{Name: rs.Name, Types: rs.Types}
			for _, t := range rs.Types {
				foreground.Register(t)
			}
			for name, count := range rs.Counts {
				if err := foreground.Add(row, name, count); err != nil {
					return nil, fmt.Errorf("scene %q role %q: %w", ss.ID, rs.Name, err)
				}
			}
			if rs.DefaultCount != 0 {
				if err := foreground.SetDefaultCount(row, rs.DefaultCount); err != nil {
					return nil, fmt.Errorf("scene %q role %q: %w", ss.ID, rs.Name, err)
				}
			}
		}

		sc, err := newScene(ss.ID, ss.Description, ss.Type, ss.Prior, roles, foreground, background)
		if err != nil {
			return nil, err
		}
		m.scenes = append(m.scenes, sc)
		m.byID[sc.ID] = sc
	}

	return m, nil
}

// LoadModel reads and validates a model schema file and builds the model
// from it. Errors here are startup-fatal.
func LoadModel(path, defaultAlgorithm string) (*Model, error) {
	doc, err := LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	return NewModel(doc, defaultAlgorithm)
}

// SetStrictVocabulary toggles rejection of evidence with unregistered types.
func (m *Model) SetStrictVocabulary(strict bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = strict
}

// Vocabulary returns the shared vocabulary.
func (m *Model) Vocabulary() *Vocabulary { return m.vocab }

// HasScene reports whether the model contains a scene with the given ID.
func (m *Model) HasScene(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[id]
	return ok
}

// SceneCount returns the number of scenes.
func (m *Model) SceneCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scenes)
}

// IntegrateEvidence routes evidence to every scene whose accepted-type set
// includes its type. Evidence no scene accepts is silently ignored; that is
// expected clutter, not an error.
func (m *Model) IntegrateEvidence(ev ObjectEvidence) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.strict && !m.vocab.Contains(ev.Type) {
		monitoring.Logf("model: rejecting evidence of unregistered type %q (strict vocabulary)", ev.Type)
		return
	}
	for _, sc := range m.scenes {
		if sc.Accepts(ev.Type) {
			sc.UpdateFromEvidence(ev)
		}
	}
}

// IntegrateSceneGraph routes a labeled example to the scene it names.
func (m *Model) IntegrateSceneGraph(example GraphExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.byID[example.Identifier]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScene, example.Identifier)
	}
	sc.UpdateFromSceneGraph(example)
	return nil
}

// Recompute re-derives every scene's likelihood and normalizes the set into
// a proper distribution. With all raw likelihoods at zero the distribution
// degenerates to uniform. Priors are left untouched.
func (m *Model) Recompute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := make([]float64, len(m.scenes))
	var total float64
	for i, sc := range m.scenes {
		raw[i] = sc.CurrentLikelihood()
		total += raw[i]
	}
	for i, sc := range m.scenes {
		if total > 0 {
			sc.likelihood = raw[i] / total
		} else if len(m.scenes) > 0 {
			sc.likelihood = 1 / float64(len(m.scenes))
		}
	}
}

// RankedScenes returns the scenes' identifiers sorted descending by
// likelihood, with ties broken by scene ID for stable output.
func (m *Model) RankedScenes() []Identifier {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Identifier, len(m.scenes))
	for i, sc := range m.scenes {
		out[i] = sc.Identifier()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Likelihood != out[j].Likelihood {
			return out[i].Likelihood > out[j].Likelihood
		}
		return out[i].SceneID < out[j].SceneID
	})
	return out
}

// SceneTable returns a table snapshot for one scene.
func (m *Model) SceneTable(sceneID string) (TableSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sc, ok := m.byID[sceneID]
	if !ok {
		return TableSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownScene, sceneID)
	}
	return sc.Snapshot(), nil
}

// Snapshots returns table snapshots for all scenes in load order.
func (m *Model) Snapshots() []TableSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TableSnapshot, len(m.scenes))
	for i, sc := range m.scenes {
		out[i] = sc.Snapshot()
	}
	return out
}

// SaveSchema serializes the model back into a schema document. Raw counts
// and priors round-trip losslessly; normalized probabilities are derived
// state and are not persisted.
func (m *Model) SaveSchema() *SchemaDoc {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc := &SchemaDoc{
		Version:    SchemaVersion,
		Vocabulary: m.vocab.Names()[1:],
	}
	for _, sc := range m.scenes {
		ss := SceneSchema{
			ID:          sc.ID,
			Description: sc.Description,
			Type:        sc.Type,
			Prior:       sc.Prior,
			Background:  sc.background.Config(),
		}
		for row, role := range sc.Roles {
			ss.Roles = append(ss.Roles, RoleSchema{
				Name:         role.Name,
				Types:        role.Types,
				Counts:       sc.foreground.RowCounts(row),
				DefaultCount: sc.foreground.DefaultCount(row),
			})
		}
		doc.Scenes = append(doc.Scenes, ss)
	}
	return doc
}

// SaveModel writes the schema document to path.
func (m *Model) SaveModel(path string) error {
	return m.SaveSchema().WriteFile(path)
}
