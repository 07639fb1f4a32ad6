// Package inference runs the update loop: it drains the buffered evidence
// and scene-graph examples, applies them to the scene model, and publishes
// the ranked scene list to subscribers.
package inference

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/scene.report/internal/archive"
	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/frames"
	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/timeutil"
)

// Engine is the single consumer of the evidence and scene-graph queues. One
// tick has two phases: evidence integration followed by recompute, then
// scene-graph learning. Producers only ever enqueue; no scene is touched by
// more than one goroutine at a time.
type Engine struct {
	cfg    *config.Config
	model  *scene.Model
	frames *frames.Service

	runID    string
	evidence *Queue[scene.ObjectEvidence]
	graphs   *Queue[scene.GraphExample]

	subscriberMu sync.Mutex
	subscribers  map[string]chan []scene.Identifier

	rankedMu   sync.RWMutex
	lastRanked []scene.Identifier

	ticks  uint64
	tickMu sync.Mutex

	clock timeutil.Clock
}

// New builds an engine over the given model and transform service.
func New(cfg *config.Config, model *scene.Model, fr *frames.Service) *Engine {
	model.SetStrictVocabulary(cfg.GetStrictVocabulary())
	return &Engine{
		cfg:         cfg,
		model:       model,
		frames:      fr,
		runID:       uuid.New().String(),
		evidence:    NewQueue[scene.ObjectEvidence](cfg.GetQueueCapacity()),
		graphs:      NewQueue[scene.GraphExample](cfg.GetQueueCapacity()),
		subscribers: make(map[string]chan []scene.Identifier),
		clock:       timeutil.RealClock{},
	}
}

// SetClock replaces the engine clock. Tests use this with a MockClock to
// drive Run without real delays.
func (e *Engine) SetClock(c timeutil.Clock) { e.clock = c }

// RunID identifies this engine instance in logs and archive provenance.
func (e *Engine) RunID() string { return e.runID }

// Model returns the scene model owned by this engine.
func (e *Engine) Model() *scene.Model { return e.model }

// EnqueueEvidence buffers one observation. Never blocks; the queue drops its
// oldest entry on overflow.
func (e *Engine) EnqueueEvidence(ev scene.ObjectEvidence) {
	e.evidence.Push(ev)
}

// EnqueueSceneGraph buffers one labeled learning example.
func (e *Engine) EnqueueSceneGraph(example scene.GraphExample) {
	e.graphs.Push(example)
}

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a channel receiving the ranked scene list after every
// tick. Slow subscribers miss updates rather than stalling the cycle.
func (e *Engine) Subscribe() (string, chan []scene.Identifier) {
	id := randomID()
	ch := make(chan []scene.Identifier, 1)
	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	e.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (e *Engine) Unsubscribe(id string) {
	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	if ch, ok := e.subscribers[id]; ok {
		close(ch)
		delete(e.subscribers, id)
	}
}

func (e *Engine) publish(ranked []scene.Identifier) {
	e.rankedMu.Lock()
	e.lastRanked = ranked
	e.rankedMu.Unlock()

	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- ranked:
		default:
			// subscriber still holds the previous update; replace it
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ranked:
			default:
			}
		}
	}
}

// Ranked returns the ranked list from the last completed tick.
func (e *Engine) Ranked() []scene.Identifier {
	e.rankedMu.RLock()
	defer e.rankedMu.RUnlock()
	out := make([]scene.Identifier, len(e.lastRanked))
	copy(out, e.lastRanked)
	return out
}

// Tick runs one inference cycle and returns the resulting ranked list.
//
// Phase 1 drains the evidence buffer; each item is transformed into the base
// frame (unresolved frames drop the item, the cycle continues) and
// integrated, then the model recomputes. Phase 2 drains the scene-graph
// buffer into the learner; it only triggers another recompute when
// learn_triggers_recompute is set.
func (e *Engine) Tick() []scene.Identifier {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	for _, ev := range e.evidence.Drain() {
		transformed, err := e.frames.Transform(ev)
		if err != nil {
			monitoring.Logf("engine: unable to resolve transform for frame %q, dropping object of type %q: %v", ev.Frame, ev.Type, err)
			continue
		}
		monitoring.Logf("engine: object of type %q found", transformed.Type)
		e.model.IntegrateEvidence(transformed)
	}
	e.model.Recompute()

	learned := false
	for _, example := range e.graphs.Drain() {
		monitoring.Logf("engine: scene graph for %q found", example.Identifier)
		if err := e.model.IntegrateSceneGraph(example); err != nil {
			monitoring.Logf("engine: dropping scene graph: %v", err)
			continue
		}
		learned = true
	}
	if learned && e.cfg.GetLearnTriggersRecompute() {
		e.model.Recompute()
	}

	e.ticks++
	ranked := e.model.RankedScenes()
	e.publish(ranked)
	return ranked
}

// Ticks returns the number of completed cycles.
func (e *Engine) Ticks() uint64 {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	return e.ticks
}

// QueueStats reports buffer depths and overflow drops for the debug routes.
func (e *Engine) QueueStats() (evidenceLen, graphLen int, evidenceDropped, graphDropped uint64) {
	return e.evidence.Len(), e.graphs.Len(), e.evidence.Dropped(), e.graphs.Dropped()
}

// Run executes ticks at the configured interval until ctx is cancelled.
// This is the online mode; there is no terminal condition of its own.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.cfg.GetTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			e.Tick()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunBatch replays the configured archives, runs exactly one tick, and
// returns the ranked list. This is the offline mode.
func (e *Engine) RunBatch(ctx context.Context) ([]scene.Identifier, error) {
	if err := e.IngestArchives(e.cfg.ArchivePaths); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Tick(), nil
}

// IngestArchives replays each archive in order. A file that cannot be opened
// is logged and skipped; an archive naming a scene the model does not
// contain is a configuration error and aborts the replay.
func (e *Engine) IngestArchives(paths []string) error {
	for _, path := range paths {
		if err := e.IngestArchive(path); err != nil {
			if errors.Is(err, scene.ErrUnknownScene) {
				return err
			}
			monitoring.Logf("engine: skipping archive %s: %v", path, err)
		}
	}
	return nil
}

// IngestArchive integrates every evidence and scene-graph record found in
// the archive at path directly into the model. Replay is synchronous and
// engine-controlled, so records do not pass through the bounded live queues
// and queue_capacity never truncates an archive. Scene graphs naming an
// unknown scene abort the replay before anything integrates. An archive
// without matching records produces a warning but is not an error.
func (e *Engine) IngestArchive(path string) error {
	a, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer a.Close()

	evidence, err := a.Evidence()
	if err != nil {
		return err
	}
	graphs, err := a.SceneGraphs()
	if err != nil {
		return err
	}
	if len(evidence) == 0 && len(graphs) == 0 {
		monitoring.Logf("engine: warning: no evidence or scene-graph records in archive %s", path)
		return nil
	}

	// Validate identifiers up front so a misconfigured archive leaves the
	// model untouched.
	for _, g := range graphs {
		if !e.model.HasScene(g.Identifier) {
			return fmt.Errorf("archive %s: %w: %q", path, scene.ErrUnknownScene, g.Identifier)
		}
	}

	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	integrated := 0
	for _, ev := range evidence {
		transformed, err := e.frames.Transform(ev)
		if err != nil {
			monitoring.Logf("engine: unable to resolve transform for frame %q, dropping archived object of type %q: %v", ev.Frame, ev.Type, err)
			continue
		}
		e.model.IntegrateEvidence(transformed)
		integrated++
	}
	for _, g := range graphs {
		if err := e.model.IntegrateSceneGraph(g); err != nil {
			return err
		}
	}
	monitoring.Logf("engine: archive %s: integrated %d evidence and %d scene-graph records", path, integrated, len(graphs))
	return nil
}
