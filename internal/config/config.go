// Package config loads the recognition node's JSON configuration. Fields are
// pointers so partial configs are safe: omitted optional fields fall back to
// defaults through the Get* accessors, while Validate enforces the options
// the node cannot start without.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FrameOffset is the static pose of a sensor frame expressed in the base
// frame: a translation plus a yaw about +Z.
type FrameOffset struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

// Config is the root configuration for the recognition node.
type Config struct {
	// Required options; missing any of these is a startup-fatal error.
	ObjectTopic        *string `json:"object_topic,omitempty"`
	SceneGraphTopic    *string `json:"scene_graph_topic,omitempty"`
	ModelPath          *string `json:"model_path,omitempty"`
	BaseFrame          *string `json:"base_frame,omitempty"`
	InferenceAlgorithm *string `json:"inference_algorithm,omitempty"`

	// Archives replayed for bulk learning before/without live traffic.
	ArchivePaths []string `json:"archive_paths,omitempty"`

	// Visualization options.
	PlotEnabled   *bool    `json:"plot_enabled,omitempty"`
	VisualScale   *float64 `json:"visual_scale,omitempty"`
	TargetingHelp *bool    `json:"targeting_help,omitempty"`
	PlotOutputDir *string  `json:"plot_output_dir,omitempty"`

	// Transform options.
	CovarianceScale   *float64               `json:"covariance_scale,omitempty"`
	TransformCacheTTL *string                `json:"transform_cache_ttl,omitempty"` // duration string like "30s"
	Frames            map[string]FrameOffset `json:"frames,omitempty"`

	// Inference cycle options.
	TickInterval           *string `json:"tick_interval,omitempty"` // duration string like "500ms"
	QueueCapacity          *int    `json:"queue_capacity,omitempty"`
	StrictVocabulary       *bool   `json:"strict_vocabulary,omitempty"`
	LearnTriggersRecompute *bool   `json:"learn_triggers_recompute,omitempty"`
}

// Load reads a Config from a JSON file and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks required options and value ranges.
func (c *Config) Validate() error {
	required := []struct {
		name string
		ok   bool
	}{
		{"object_topic", c.ObjectTopic != nil && *c.ObjectTopic != ""},
		{"scene_graph_topic", c.SceneGraphTopic != nil && *c.SceneGraphTopic != ""},
		{"model_path", c.ModelPath != nil && *c.ModelPath != ""},
		{"base_frame", c.BaseFrame != nil && *c.BaseFrame != ""},
		{"inference_algorithm", c.InferenceAlgorithm != nil && *c.InferenceAlgorithm != ""},
	}
	for _, r := range required {
		if !r.ok {
			return fmt.Errorf("missing required option %q", r.name)
		}
	}

	for _, topic := range []struct{ name, value string }{
		{"object_topic", *c.ObjectTopic},
		{"scene_graph_topic", *c.SceneGraphTopic},
	} {
		if !strings.HasPrefix(topic.value, "/") {
			return fmt.Errorf("%s must be an absolute path, got %q", topic.name, topic.value)
		}
	}

	if c.CovarianceScale != nil && *c.CovarianceScale <= 0 {
		return fmt.Errorf("covariance_scale must be positive, got %f", *c.CovarianceScale)
	}
	if c.VisualScale != nil && *c.VisualScale <= 0 {
		return fmt.Errorf("visual_scale must be positive, got %f", *c.VisualScale)
	}
	if c.QueueCapacity != nil && *c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", *c.QueueCapacity)
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if _, err := time.ParseDuration(*c.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
	}
	if c.TransformCacheTTL != nil && *c.TransformCacheTTL != "" {
		if _, err := time.ParseDuration(*c.TransformCacheTTL); err != nil {
			return fmt.Errorf("invalid transform_cache_ttl '%s': %w", *c.TransformCacheTTL, err)
		}
	}
	return nil
}

// GetObjectTopic returns the object ingest path.
func (c *Config) GetObjectTopic() string { return *c.ObjectTopic }

// GetSceneGraphTopic returns the scene-graph ingest path.
func (c *Config) GetSceneGraphTopic() string { return *c.SceneGraphTopic }

// GetModelPath returns the model file path.
func (c *Config) GetModelPath() string { return *c.ModelPath }

// GetBaseFrame returns the frame all evidence is transformed into.
func (c *Config) GetBaseFrame() string { return *c.BaseFrame }

// GetInferenceAlgorithm returns the background algorithm kind applied to
// scenes that do not name their own.
func (c *Config) GetInferenceAlgorithm() string { return *c.InferenceAlgorithm }

// GetPlotEnabled returns the plot_enabled value or the default.
func (c *Config) GetPlotEnabled() bool {
	if c.PlotEnabled == nil {
		return false
	}
	return *c.PlotEnabled
}

// GetVisualScale returns the visual_scale value or the default.
func (c *Config) GetVisualScale() float64 {
	if c.VisualScale == nil {
		return 1.0
	}
	return *c.VisualScale
}

// GetTargetingHelp returns the targeting_help value or the default.
func (c *Config) GetTargetingHelp() bool {
	if c.TargetingHelp == nil {
		return false
	}
	return *c.TargetingHelp
}

// GetPlotOutputDir returns the plot output directory or the default.
func (c *Config) GetPlotOutputDir() string {
	if c.PlotOutputDir == nil || *c.PlotOutputDir == "" {
		return "plots"
	}
	return *c.PlotOutputDir
}

// GetCovarianceScale returns the covariance_scale value or the default.
func (c *Config) GetCovarianceScale() float64 {
	if c.CovarianceScale == nil {
		return 1.0
	}
	return *c.CovarianceScale
}

// GetTransformCacheTTL parses and returns the transform cache TTL.
func (c *Config) GetTransformCacheTTL() time.Duration {
	if c.TransformCacheTTL == nil || *c.TransformCacheTTL == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.TransformCacheTTL)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetTickInterval parses and returns the inference tick interval.
func (c *Config) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetQueueCapacity returns the per-queue capacity or the default.
func (c *Config) GetQueueCapacity() int {
	if c.QueueCapacity == nil {
		return 1024
	}
	return *c.QueueCapacity
}

// GetStrictVocabulary returns the strict_vocabulary value or the default.
func (c *Config) GetStrictVocabulary() bool {
	if c.StrictVocabulary == nil {
		return false
	}
	return *c.StrictVocabulary
}

// GetLearnTriggersRecompute returns whether scene-graph integration forces a
// recompute in the same tick.
func (c *Config) GetLearnTriggersRecompute() bool {
	if c.LearnTriggersRecompute == nil {
		return false
	}
	return *c.LearnTriggersRecompute
}
