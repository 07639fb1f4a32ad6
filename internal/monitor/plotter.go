// Package monitor is the visualization sink: it records ranked scene
// likelihoods over inference ticks and renders them as an echarts HTML bar
// chart or gonum PNG time series. Purely consumer-side; nothing here feeds
// back into the model.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/scene"
)

var logf = monitoring.Prefixed("monitor")

// SeriesPlotter accumulates per-scene likelihood time series across
// inference ticks. Sample is cheap; rendering happens on demand.
type SeriesPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	// visualScale multiplies line widths; targetingHelp adds a reference
	// line at the uniform likelihood so scenes above chance stand out.
	visualScale   float64
	targetingHelp bool

	// samples holds likelihood series keyed by scene ID.
	samples map[string][]float64
	ticks   int

	// latest is the most recent ranked list, used by the bar chart.
	latest []scene.Identifier
}

// NewSeriesPlotter creates a plotter writing PNG files under outputDir when
// enabled. A disabled plotter accepts samples but ignores them.
func NewSeriesPlotter(enabled bool, outputDir string, visualScale float64, targetingHelp bool) *SeriesPlotter {
	if visualScale <= 0 {
		visualScale = 1
	}
	return &SeriesPlotter{
		enabled:       enabled,
		outputDir:     outputDir,
		visualScale:   visualScale,
		targetingHelp: targetingHelp,
		samples:       make(map[string][]float64),
	}
}

// Enabled reports whether plotting is active.
func (sp *SeriesPlotter) Enabled() bool { return sp.enabled }

// Sample records one ranked list. Call once per inference tick.
func (sp *SeriesPlotter) Sample(ranked []scene.Identifier) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.latest = ranked
	if !sp.enabled {
		return
	}
	for _, id := range ranked {
		// pad series that joined late so x positions stay aligned
		for len(sp.samples[id.SceneID]) < sp.ticks {
			sp.samples[id.SceneID] = append(sp.samples[id.SceneID], 0)
		}
		sp.samples[id.SceneID] = append(sp.samples[id.SceneID], id.Likelihood)
	}
	sp.ticks++
}

// Latest returns the most recent ranked list seen by the plotter.
func (sp *SeriesPlotter) Latest() []scene.Identifier {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]scene.Identifier, len(sp.latest))
	copy(out, sp.latest)
	return out
}

// generateColors returns n visually distinct line colors.
func generateColors(n int) []color.Color {
	palette := []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
		color.RGBA{R: 140, G: 86, B: 75, A: 255},
		color.RGBA{R: 227, G: 119, B: 194, A: 255},
		color.RGBA{R: 127, G: 127, B: 127, A: 255},
	}
	out := make([]color.Color, n)
	for i := 0; i < n; i++ {
		out[i] = palette[i%len(palette)]
	}
	return out
}

// buildPlot assembles the likelihood time-series plot from the samples.
func (sp *SeriesPlotter) buildPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Scene Likelihood"
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Likelihood"
	p.Y.Min = 0
	p.Y.Max = 1

	// Sort scene IDs for a consistent legend
	var ids []string
	for id := range sp.samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	colors := generateColors(len(ids))
	for i, id := range ids {
		series := sp.samples[id]
		pts := make(plotter.XYs, 0, len(series))
		for tick, v := range series {
			pts = append(pts, plotter.XY{X: float64(tick), Y: v})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build line for scene %s: %w", id, err)
		}
		line.Width = vg.Points(sp.visualScale)
		line.Color = colors[i]
		p.Add(line)
		p.Legend.Add(id, line)
	}

	if sp.targetingHelp && len(ids) > 0 {
		uniform := 1 / float64(len(ids))
		ref := plotter.XYs{{X: 0, Y: uniform}, {X: float64(sp.ticks - 1), Y: uniform}}
		line, err := plotter.NewLine(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to build reference line: %w", err)
		}
		line.Width = vg.Points(sp.visualScale)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		line.Color = color.Gray{Y: 128}
		p.Add(line)
		p.Legend.Add("uniform", line)
	}
	return p, nil
}

// WritePNG renders the accumulated series to a PNG file under the output
// directory and returns its path.
func (sp *SeriesPlotter) WritePNG() (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if !sp.enabled {
		return "", fmt.Errorf("plotting is disabled")
	}
	if len(sp.samples) == 0 {
		return "", fmt.Errorf("no samples recorded")
	}
	if err := os.MkdirAll(sp.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plot output dir: %w", err)
	}

	p, err := sp.buildPlot()
	if err != nil {
		return "", err
	}
	file := filepath.Join(sp.outputDir, "scene_likelihood.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	logf("wrote likelihood plot to %s", file)
	return file, nil
}
