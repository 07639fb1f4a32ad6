package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// AttachDebugRoutes mounts the visualization endpoints on mux. These are
// debugging aids, not part of the public API.
func (sp *SeriesPlotter) AttachDebugRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/scenes/plot", sp.handleBarChart)
	mux.HandleFunc("/debug/scenes/timeseries.png", sp.handleTimeSeriesPNG)
}

// handleBarChart renders a quick bar chart (HTML) of the current scene
// probabilities using go-echarts.
func (sp *SeriesPlotter) handleBarChart(w http.ResponseWriter, r *http.Request) {
	ranked := sp.Latest()
	if len(ranked) == 0 {
		http.Error(w, "no inference results yet", http.StatusNotFound)
		return
	}

	labels := make([]string, 0, len(ranked))
	likelihoods := make([]opts.BarData, 0, len(ranked))
	priors := make([]opts.BarData, 0, len(ranked))
	for _, id := range ranked {
		labels = append(labels, id.Description)
		likelihoods = append(likelihoods, opts.BarData{Value: id.Likelihood})
		priors = append(priors, opts.BarData{Value: id.Priori})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scene Probability", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Scene Probability", Subtitle: fmt.Sprintf("scenes=%d", len(ranked))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Probability"}),
	)
	bar.SetXAxis(labels).
		AddSeries("likelihood", likelihoods).
		AddSeries("prior", priors)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleTimeSeriesPNG streams the likelihood time-series plot as a PNG.
func (sp *SeriesPlotter) handleTimeSeriesPNG(w http.ResponseWriter, r *http.Request) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if len(sp.samples) == 0 {
		http.Error(w, "no samples recorded", http.StatusNotFound)
		return
	}
	p, err := sp.buildPlot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	img := vgimg.PngCanvas{Canvas: vgimg.New(14*vg.Inch, 6*vg.Inch)}
	p.Draw(draw.New(img))
	w.Header().Set("Content-Type", "image/png")
	if _, err := img.WriteTo(w); err != nil {
		// headers already sent; nothing sensible left to do
		return
	}
}
