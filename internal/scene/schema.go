package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion is the current model file version.
const SchemaVersion = 1

// SchemaDoc is the logical model file: the shared vocabulary plus one entry
// per scene with roles, raw counts, prior, and background configuration.
// The on-disk format is JSON; counts and priors are stored raw so that
// save/load is a lossless round trip.
type SchemaDoc struct {
	Version    int           `json:"version"`
	Vocabulary []string      `json:"vocabulary"`
	Scenes     []SceneSchema `json:"scenes"`
}

// SceneSchema is the persisted form of one scene.
type SceneSchema struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	Prior       float64          `json:"prior"`
	Roles       []RoleSchema     `json:"roles"`
	Background  BackgroundConfig `json:"background"`
}

// RoleSchema is the persisted form of one foreground role row.
type RoleSchema struct {
	Name         string             `json:"name"`
	Types        []string           `json:"types"`
	Counts       map[string]float64 `json:"counts,omitempty"`
	DefaultCount float64            `json:"default_count,omitempty"`
}

// Validate checks the structural invariants of a schema document. A failure
// here is a startup-fatal configuration error.
func (d *SchemaDoc) Validate() error {
	if d.Version != SchemaVersion {
		return fmt.Errorf("model schema: unsupported version %d (want %d)", d.Version, SchemaVersion)
	}
	if len(d.Scenes) == 0 {
		return fmt.Errorf("model schema: no scenes defined")
	}
	seen := make(map[string]bool, len(d.Scenes))
	for _, ss := range d.Scenes {
		if ss.ID == "" {
			return fmt.Errorf("model schema: scene with empty id")
		}
		if seen[ss.ID] {
			return fmt.Errorf("model schema: duplicate scene id %q", ss.ID)
		}
		seen[ss.ID] = true
		if ss.Prior < 0 || ss.Prior > 1 {
			return fmt.Errorf("model schema: scene %q prior %v outside [0,1]", ss.ID, ss.Prior)
		}
		roleNames := make(map[string]bool, len(ss.Roles))
		for _, rs := range ss.Roles {
			if rs.Name == "" {
				return fmt.Errorf("model schema: scene %q has a role with empty name", ss.ID)
			}
			if roleNames[rs.Name] {
				return fmt.Errorf("model schema: scene %q duplicate role %q", ss.ID, rs.Name)
			}
			roleNames[rs.Name] = true
			for name := range rs.Counts {
				if name == DefaultBucket {
					return fmt.Errorf("model schema: scene %q role %q: default bucket counts belong in default_count", ss.ID, rs.Name)
				}
			}
			for _, count := range rs.Counts {
				if count < 0 {
					return fmt.Errorf("model schema: scene %q role %q has a negative count", ss.ID, rs.Name)
				}
			}
		}
	}
	return nil
}

// LoadSchemaFile reads and validates a model schema from a JSON file.
func LoadSchemaFile(path string) (*SchemaDoc, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("model file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var doc SchemaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model file %s: %w", cleanPath, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteFile writes the document to path as indented JSON.
func (d *SchemaDoc) WriteFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model schema: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}
