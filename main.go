package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/scene.report/internal/api"
	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/frames"
	"github.com/banshee-data/scene.report/internal/inference"
	"github.com/banshee-data/scene.report/internal/monitor"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/version"
)

var (
	configPath = flag.String("config", "config/recognition.json", "Path to the node configuration file")
	listen     = flag.String("listen", ":8080", "Listen address")
	batchMode  = flag.Bool("batch", false, "Ingest configured archives, run one inference cycle, print results, and exit")
)

func main() {
	flag.Parse()

	log.Printf("scene.report %s", version.String())

	if *listen == "" && !*batchMode {
		log.Fatal("Listen address is required")
	}

	// Configuration and model problems are fatal before the inference loop
	// starts; nothing below recovers from a half-configured node.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	model, err := scene.LoadModel(cfg.GetModelPath(), cfg.GetInferenceAlgorithm())
	if err != nil {
		log.Fatalf("failed to load scene model: %v", err)
	}
	log.Printf("loaded scene model with %d scenes from %s", model.SceneCount(), cfg.GetModelPath())

	transform := frames.New(cfg.GetBaseFrame(), cfg.GetCovarianceScale(), cfg.Frames, cfg.GetTransformCacheTTL())
	engine := inference.New(cfg, model, transform)
	plotter := monitor.NewSeriesPlotter(cfg.GetPlotEnabled(), cfg.GetPlotOutputDir(), cfg.GetVisualScale(), cfg.GetTargetingHelp())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *batchMode {
		runBatch(ctx, engine, plotter)
		return
	}

	// Learning archives integrate before live traffic starts. An archive
	// naming an unknown scene is a configuration error, fatal here.
	if err := engine.IngestArchives(cfg.ArchivePaths); err != nil {
		log.Fatalf("failed to replay learning archives: %v", err)
	}

	var wg sync.WaitGroup

	// inference loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("inference loop terminated: %v", err)
		}
		log.Print("inference loop terminated")
	}()

	// feed the plotter with every ranked update
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := engine.Subscribe()
		defer engine.Unsubscribe(id)
		for {
			select {
			case ranked, ok := <-c:
				if !ok {
					return
				}
				plotter.Sample(ranked)
			case <-ctx.Done():
				log.Print("plot routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		plotter.AttachDebugRoutes(mux)

		apiMux := api.NewServer(engine, cfg).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()

	if plotter.Enabled() {
		if _, err := plotter.WritePNG(); err != nil {
			log.Printf("failed to write likelihood plot: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}

// runBatch executes the offline mode: replay archives, one cycle, print the
// ranked scene probabilities, done.
func runBatch(ctx context.Context, engine *inference.Engine, plotter *monitor.SeriesPlotter) {
	ranked, err := engine.RunBatch(ctx)
	if err != nil {
		log.Fatalf("batch run failed: %v", err)
	}
	plotter.Sample(ranked)

	log.Printf("===========================================")
	log.Printf("scene probabilities after batch run:")
	for _, id := range ranked {
		log.Printf(" -> %s (%s): %f (%f)", id.Description, id.Type, id.Likelihood, id.Priori)
	}

	if plotter.Enabled() {
		if _, err := plotter.WritePNG(); err != nil {
			log.Printf("failed to write likelihood plot: %v", err)
		}
	}
}
