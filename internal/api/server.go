// Package api exposes the recognition node over HTTP: ingest endpoints for
// the configured bus topics, the ranked scene list, per-scene table
// snapshots, and an SSE stream of inference results.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/inference"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the recognition API backed by a running engine.
type Server struct {
	engine *inference.Engine
	cfg    *config.Config
}

// NewServer creates an API server over the engine.
func NewServer(engine *inference.Engine, cfg *config.Config) *Server {
	return &Server{engine: engine, cfg: cfg}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. The ingest paths come from the configured
// bus topics so producers address the node the same way they addressed the
// message bus.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.GetObjectTopic(), s.handleIngestObject)
	mux.HandleFunc(s.cfg.GetSceneGraphTopic(), s.handleIngestSceneGraph)
	mux.HandleFunc("/scenes", s.handleScenes)
	mux.HandleFunc("/scenes/table", s.handleSceneTable)
	mux.HandleFunc("/scenes/stream", s.handleScenesStream)
	mux.HandleFunc("/vocabulary", s.handleVocabulary)
	mux.HandleFunc("/model/save", s.handleModelSave)
	mux.HandleFunc("/queues", s.handleQueues)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleIngestObject accepts one ObjectEvidence and enqueues it. The handler
// only buffers; integration happens on the next inference tick.
func (s *Server) handleIngestObject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var ev scene.ObjectEvidence
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid evidence: %v", err))
		return
	}
	if ev.Type == "" {
		writeJSONError(w, http.StatusBadRequest, "evidence requires a type")
		return
	}
	if ev.TimestampNs == 0 {
		ev.TimestampNs = time.Now().UnixNano()
	}
	s.engine.EnqueueEvidence(ev)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleIngestSceneGraph accepts one labeled example and enqueues it.
func (s *Server) handleIngestSceneGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var example scene.GraphExample
	if err := json.NewDecoder(r.Body).Decode(&example); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid scene graph: %v", err))
		return
	}
	if example.Identifier == "" {
		writeJSONError(w, http.StatusBadRequest, "scene graph requires an identifier")
		return
	}
	s.engine.EnqueueSceneGraph(example)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleScenes returns the ranked scene list from the last completed tick.
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": s.engine.RunID(),
		"ticks":  s.engine.Ticks(),
		"scenes": s.engine.Ranked(),
	})
}

// handleSceneTable returns the table snapshot for one scene, or all scenes
// when scene_id is omitted.
func (s *Server) handleSceneTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sceneID := r.URL.Query().Get("scene_id")
	if sceneID == "" {
		writeJSON(w, http.StatusOK, s.engine.Model().Snapshots())
		return
	}
	snap, err := s.engine.Model().SceneTable(sceneID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleScenesStream issues Server-Sent Events with the ranked list after
// each inference tick.
func (s *Server) handleScenesStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.engine.Subscribe()
	defer s.engine.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case ranked, ok := <-c:
			if !ok {
				return
			}
			payload, err := json.Marshal(ranked)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleVocabulary returns the shared vocabulary and default-bucket stats.
func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vocab := s.engine.Model().Vocabulary()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"names":        vocab.Names(),
		"default_hits": vocab.DefaultHits(),
	})
}

// handleModelSave persists the current model state to the configured path.
func (s *Server) handleModelSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := s.cfg.GetModelPath()
	if err := s.engine.Model().SaveModel(path); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": path})
}

// handleVersion reports the build identification.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// handleQueues reports buffer depths and overflow drop counters.
func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	evLen, gLen, evDropped, gDropped := s.engine.QueueStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evidence":     map[string]interface{}{"depth": evLen, "dropped": evDropped, "capacity": s.cfg.GetQueueCapacity()},
		"scene_graphs": map[string]interface{}{"depth": gLen, "dropped": gDropped, "capacity": s.cfg.GetQueueCapacity()},
	})
}
