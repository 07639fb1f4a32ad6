// gen-archive writes a synthetic evidence/scene-graph archive for testing
// the batch learning path without recorded data.
package main

import (
	"flag"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scene.report/internal/archive"
	"github.com/banshee-data/scene.report/internal/scene"
)

var (
	out        = flag.String("out", "archive.db", "Output archive path")
	sceneID    = flag.String("scene", "demo-scene", "Scene identifier for generated scene graphs")
	types      = flag.String("types", "cup,plate,fork", "Comma-separated object types to draw from")
	frame      = flag.String("frame", "sensor/front", "Frame for generated evidence")
	evidenceN  = flag.Int("evidence", 50, "Number of standalone evidence records")
	graphN     = flag.Int("graphs", 5, "Number of scene-graph examples")
	graphItems = flag.Int("graph-items", 4, "Evidence items per scene graph")
	seed       = flag.Int64("seed", 0, "Random seed (0 = time-based)")
)

func main() {
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	objectTypes := strings.Split(*types, ",")
	if len(objectTypes) == 0 {
		log.Fatal("at least one object type is required")
	}

	a, err := archive.Create(*out)
	if err != nil {
		log.Fatalf("failed to create archive: %v", err)
	}
	defer a.Close()

	now := time.Now().UnixNano()
	randomEvidence := func(ts int64) scene.ObjectEvidence {
		return scene.ObjectEvidence{
			ID:    uuid.New().String(),
			Type:  objectTypes[rng.Intn(len(objectTypes))],
			Frame: *frame,
			Pose: scene.Pose{
				X:          rng.Float64()*4 - 2,
				Y:          rng.Float64()*4 - 2,
				Yaw:        rng.Float64() * 6.283,
				Covariance: 0.05 + rng.Float64()*0.1,
			},
			TimestampNs: ts,
		}
	}

	for i := 0; i < *evidenceN; i++ {
		if err := a.AppendEvidence(randomEvidence(now + int64(i)*1e6)); err != nil {
			log.Fatalf("failed to append evidence: %v", err)
		}
	}

	for i := 0; i < *graphN; i++ {
		example := scene.GraphExample{Identifier: *sceneID}
		for j := 0; j < *graphItems; j++ {
			example.Evidence = append(example.Evidence, randomEvidence(now+int64(i)*1e9+int64(j)*1e6))
		}
		if err := a.AppendSceneGraph(example); err != nil {
			log.Fatalf("failed to append scene graph: %v", err)
		}
	}

	ev, graphs, err := a.Counts()
	if err != nil {
		log.Fatalf("failed to count records: %v", err)
	}
	log.Printf("wrote %s: %d evidence records, %d scene graphs (seed=%d)", *out, ev, graphs, *seed)
}
