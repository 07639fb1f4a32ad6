// Package archive reads and writes sqlite files holding persisted evidence
// and scene-graph records for bulk learning and offline replay. The schema
// is versioned by embedded migrations.
package archive

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/scene.report/internal/scene"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record kinds stored in an archive.
const (
	KindEvidence   = "evidence"
	KindSceneGraph = "scene_graph"
)

// Archive is an open archive file.
type Archive struct {
	db   *sql.DB
	path string
}

// Open opens an existing archive for reading. A missing or unreadable file
// is an error the caller is expected to log and skip.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	a := &Archive{db: db, path: path}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Create creates a new archive file (or opens an existing one for append)
// and applies the schema.
func Create(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	a := &Archive{db: db, path: path}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("archive %s: load migrations: %w", a.path, err)
	}
	driver, err := migratesqlite.WithInstance(a.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("archive %s: migrate driver: %w", a.path, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("archive %s: migrate instance: %w", a.path, err)
	}
	// Not closing m: it would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("archive %s: migration failed: %w", a.path, err)
	}
	return nil
}

// Path returns the archive file path.
func (a *Archive) Path() string { return a.path }

// Close closes the underlying database.
func (a *Archive) Close() error { return a.db.Close() }

// AppendEvidence stores one evidence record. A record ID is generated when
// the evidence carries none.
func (a *Archive) AppendEvidence(ev scene.ObjectEvidence) error {
	recordID := ev.ID
	if recordID == "" {
		recordID = uuid.New().String()
	}
	ts := ev.TimestampNs
	if ts == 0 {
		ts = time.Now().UnixNano()
	}
	poseJSON, err := json.Marshal(ev.Pose)
	if err != nil {
		return fmt.Errorf("archive %s: marshal pose: %w", a.path, err)
	}
	_, err = a.db.Exec(`
		INSERT INTO records (record_id, kind, object_type, frame, pose_json, timestamp_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`, recordID, KindEvidence, ev.Type, ev.Frame, string(poseJSON), ts)
	if err != nil {
		return fmt.Errorf("archive %s: insert evidence: %w", a.path, err)
	}
	return nil
}

// AppendSceneGraph stores one labeled example. The contained evidence is
// serialized into the payload column so the example replays as one unit.
func (a *Archive) AppendSceneGraph(example scene.GraphExample) error {
	payload, err := json.Marshal(example.Evidence)
	if err != nil {
		return fmt.Errorf("archive %s: marshal scene graph: %w", a.path, err)
	}
	var ts int64
	for _, ev := range example.Evidence {
		if ev.TimestampNs > ts {
			ts = ev.TimestampNs
		}
	}
	if ts == 0 {
		ts = time.Now().UnixNano()
	}
	_, err = a.db.Exec(`
		INSERT INTO records (record_id, kind, scene_identifier, payload_json, timestamp_ns)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), KindSceneGraph, example.Identifier, string(payload), ts)
	if err != nil {
		return fmt.Errorf("archive %s: insert scene graph: %w", a.path, err)
	}
	return nil
}

// Evidence returns all evidence records in timestamp order.
func (a *Archive) Evidence() ([]scene.ObjectEvidence, error) {
	rows, err := a.db.Query(`
		SELECT record_id, object_type, frame, pose_json, timestamp_ns
		FROM records
		WHERE kind = ?
		ORDER BY timestamp_ns, record_id
	`, KindEvidence)
	if err != nil {
		return nil, fmt.Errorf("archive %s: query evidence: %w", a.path, err)
	}
	defer rows.Close()

	var out []scene.ObjectEvidence
	for rows.Next() {
		var ev scene.ObjectEvidence
		var objectType, frame, poseJSON sql.NullString
		if err := rows.Scan(&ev.ID, &objectType, &frame, &poseJSON, &ev.TimestampNs); err != nil {
			return nil, fmt.Errorf("archive %s: scan evidence: %w", a.path, err)
		}
		ev.Type = objectType.String
		ev.Frame = frame.String
		if poseJSON.Valid && poseJSON.String != "" {
			if err := json.Unmarshal([]byte(poseJSON.String), &ev.Pose); err != nil {
				return nil, fmt.Errorf("archive %s: parse pose for record %s: %w", a.path, ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SceneGraphs returns all scene-graph records in timestamp order.
func (a *Archive) SceneGraphs() ([]scene.GraphExample, error) {
	rows, err := a.db.Query(`
		SELECT record_id, scene_identifier, payload_json
		FROM records
		WHERE kind = ?
		ORDER BY timestamp_ns, record_id
	`, KindSceneGraph)
	if err != nil {
		return nil, fmt.Errorf("archive %s: query scene graphs: %w", a.path, err)
	}
	defer rows.Close()

	var out []scene.GraphExample
	for rows.Next() {
		var recordID string
		var identifier, payload sql.NullString
		if err := rows.Scan(&recordID, &identifier, &payload); err != nil {
			return nil, fmt.Errorf("archive %s: scan scene graph: %w", a.path, err)
		}
		example := scene.GraphExample{Identifier: identifier.String}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &example.Evidence); err != nil {
				return nil, fmt.Errorf("archive %s: parse scene graph record %s: %w", a.path, recordID, err)
			}
		}
		out = append(out, example)
	}
	return out, rows.Err()
}

// Counts returns the number of evidence and scene-graph records.
func (a *Archive) Counts() (evidence, sceneGraphs int, err error) {
	row := a.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN kind = ? THEN 1 END),
			COUNT(CASE WHEN kind = ? THEN 1 END)
		FROM records
	`, KindEvidence, KindSceneGraph)
	if err := row.Scan(&evidence, &sceneGraphs); err != nil {
		return 0, 0, fmt.Errorf("archive %s: count records: %w", a.path, err)
	}
	return evidence, sceneGraphs, nil
}
