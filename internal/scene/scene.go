package scene

import (
	"fmt"
	"sort"
)

// Role is a named foreground slot of a scene. Evidence routes to the first
// role whose accepted-type set contains the evidence type; each role owns
// one row of the scene's foreground table.
type Role struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// Scene is one recognizable scene hypothesis: a prior, a foreground
// probability table over its roles, and a background-clutter model. Scenes
// are created at model-load time and mutated in place during learning and
// evidence integration; they are never destroyed during a run.
type Scene struct {
	ID          string
	Description string
	Type        string
	Prior       float64
	Roles       []Role

	foreground *ProbabilityTable
	background BackgroundAlgorithm

	// roleForType routes an object type to its foreground row.
	roleForType map[string]int

	// observed holds the latest observation per object type: the scene's
	// current view of the world, consumed by CurrentLikelihood.
	observed map[string]ObjectEvidence

	// likelihood is the normalized value assigned by the model's last
	// Recompute.
	likelihood float64
}

func newScene(id, description, sceneType string, prior float64, roles []Role, foreground *ProbabilityTable, background BackgroundAlgorithm) (*Scene, error) {
	if prior < 0 || prior > 1 {
		return nil, fmt.Errorf("scene %q: prior %v outside [0,1]", id, prior)
	}
	s := &Scene{
		ID:          id,
		Description: description,
		Type:        sceneType,
		Prior:       prior,
		Roles:       roles,
		foreground:  foreground,
		background:  background,
		roleForType: make(map[string]int),
		observed:    make(map[string]ObjectEvidence),
	}
	for row, role := range roles {
		for _, t := range role.Types {
			if _, dup := s.roleForType[t]; !dup {
				s.roleForType[t] = row
			}
		}
	}
	return s, nil
}

// Accepts reports whether the scene takes any interest in objectType, either
// as a foreground role or as background clutter.
func (s *Scene) Accepts(objectType string) bool {
	if _, ok := s.roleForType[objectType]; ok {
		return true
	}
	return s.background.Accepts(objectType)
}

// Background returns the scene's background strategy.
func (s *Scene) Background() BackgroundAlgorithm { return s.background }

// Foreground returns the scene's foreground table.
func (s *Scene) Foreground() *ProbabilityTable { return s.foreground }

// UpdateFromEvidence integrates one live observation: the foreground count
// for the role accepting the type is incremented and the observation is
// recorded as the current state for that type. Background-vocabulary
// evidence only updates the observation set; its counts are learned from
// scene graphs, not from live detections.
func (s *Scene) UpdateFromEvidence(ev ObjectEvidence) {
	if row, ok := s.roleForType[ev.Type]; ok {
		// row always in range; roleForType rows come from the roles slice
		_ = s.foreground.Increment(row, ev.Type)
	}
	s.observed[ev.Type] = ev
}

// UpdateFromSceneGraph applies one labeled historical instance. This is the
// learning pass: counts accumulate, so integrating the same example twice
// doubles its contribution. The current observation set is untouched.
func (s *Scene) UpdateFromSceneGraph(example GraphExample) {
	for _, ev := range example.Evidence {
		if row, ok := s.roleForType[ev.Type]; ok {
			_ = s.foreground.Increment(row, ev.Type)
			continue
		}
		s.background.Learn(ev.Type)
	}
}

// CurrentLikelihood combines the foreground match with the background
// complement, scaled by the prior:
//
//	prior * product(P_fg(role, type) for observed foreground types) * (1 - P_bg)
//
// A scene that has observed nothing keeps a foreground match of 1, so only
// its prior and background complement drive it. The value is unnormalized;
// the model normalizes across scenes.
func (s *Scene) CurrentLikelihood() float64 {
	types := make([]string, 0, len(s.observed))
	for t := range s.observed {
		types = append(types, t)
	}
	sort.Strings(types)

	match := 1.0
	bgEvidence := make([]ObjectEvidence, 0, len(types))
	for _, t := range types {
		if row, ok := s.roleForType[t]; ok {
			match *= s.foreground.Probability(row, t)
			continue
		}
		bgEvidence = append(bgEvidence, s.observed[t])
	}

	return s.Prior * match * (1 - s.background.Infer(bgEvidence))
}

// Likelihood returns the normalized likelihood from the last model
// recompute.
func (s *Scene) Likelihood() float64 { return s.likelihood }

// ObservedTypes returns the object types currently in the observation set,
// sorted.
func (s *Scene) ObservedTypes() []string {
	types := make([]string, 0, len(s.observed))
	for t := range s.observed {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Identifier returns the scene's output record for the ranked list.
func (s *Scene) Identifier() Identifier {
	return Identifier{
		SceneID:     s.ID,
		Description: s.Description,
		Type:        s.Type,
		Likelihood:  s.likelihood,
		Priori:      s.Prior,
	}
}

// TableRowSnapshot is one role row of a scene table snapshot.
type TableRowSnapshot struct {
	Role         string             `json:"role"`
	Types        []string           `json:"types"`
	Counts       map[string]float64 `json:"counts"`
	DefaultCount float64            `json:"default_count"`
}

// TableSnapshot is a read-only view of a scene's tables for display sinks.
type TableSnapshot struct {
	SceneID    string             `json:"scene_id"`
	Foreground []TableRowSnapshot `json:"foreground"`
	Background BackgroundConfig   `json:"background"`
	Observed   []string           `json:"observed"`
}

// Snapshot returns the scene's current table state.
func (s *Scene) Snapshot() TableSnapshot {
	snap := TableSnapshot{
		SceneID:    s.ID,
		Background: s.background.Config(),
		Observed:   s.ObservedTypes(),
	}
	for row, role := range s.Roles {
		snap.Foreground = append(snap.Foreground, TableRowSnapshot{
			Role:         role.Name,
			Types:        role.Types,
			Counts:       s.foreground.RowCounts(row),
			DefaultCount: s.foreground.DefaultCount(row),
		})
	}
	return snap
}
