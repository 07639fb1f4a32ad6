// model-inspect dumps a scene model file: priors, role tables with raw and
// normalized counts, and background parameters.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/banshee-data/scene.report/internal/scene"
)

var (
	modelPath = flag.String("model", "", "Path to the model schema file")
	algorithm = flag.String("algorithm", scene.KindPowerSet, "Background algorithm for scenes that omit one")
)

func main() {
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("Please specify -model")
	}

	model, err := scene.LoadModel(*modelPath, *algorithm)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	model.Recompute()

	fmt.Printf("model: %s (%d scenes)\n", *modelPath, model.SceneCount())
	fmt.Printf("vocabulary: %v\n\n", model.Vocabulary().Names())

	for _, id := range model.RankedScenes() {
		snap, err := model.SceneTable(id.SceneID)
		if err != nil {
			log.Fatalf("failed to snapshot scene %s: %v", id.SceneID, err)
		}
		fmt.Printf("scene %s (%s, type=%s, prior=%.3f)\n", id.SceneID, id.Description, id.Type, id.Priori)
		for _, row := range snap.Foreground {
			fmt.Printf("  role %-16s types=%v default=%.2f\n", row.Role, row.Types, row.DefaultCount)
			names := make([]string, 0, len(row.Counts))
			for name := range row.Counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("    %-20s %.2f\n", name, row.Counts[name])
			}
		}
		bg := snap.Background
		fmt.Printf("  background kind=%s baseline=%.3f rule=%s cap=%d vocab=%v\n\n",
			bg.Kind, bg.NoDetectionBaseline, bg.CombinationRule, bg.MaxSubsetItems, bg.Vocabulary)
	}
}
