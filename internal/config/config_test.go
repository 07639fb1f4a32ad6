package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func validConfig() *Config {
	return &Config{
		ObjectTopic:        strPtr("/objects"),
		SceneGraphTopic:    strPtr("/scene_graphs"),
		ModelPath:          strPtr("model.json"),
		BaseFrame:          strPtr("map"),
		InferenceAlgorithm: strPtr("power-set"),
	}
}

func TestValidateRequiredOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing object_topic", func(c *Config) { c.ObjectTopic = nil }},
		{"empty object_topic", func(c *Config) { c.ObjectTopic = strPtr("") }},
		{"missing scene_graph_topic", func(c *Config) { c.SceneGraphTopic = nil }},
		{"missing model_path", func(c *Config) { c.ModelPath = nil }},
		{"missing base_frame", func(c *Config) { c.BaseFrame = nil }},
		{"missing inference_algorithm", func(c *Config) { c.InferenceAlgorithm = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an incomplete config")
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"relative topic", func(c *Config) { c.ObjectTopic = strPtr("objects") }, true},
		{"zero covariance scale", func(c *Config) { c.CovarianceScale = floatPtr(0) }, true},
		{"negative visual scale", func(c *Config) { c.VisualScale = floatPtr(-1) }, true},
		{"zero queue capacity", func(c *Config) { c.QueueCapacity = intPtr(0) }, true},
		{"bad tick interval", func(c *Config) { c.TickInterval = strPtr("fast") }, true},
		{"bad cache ttl", func(c *Config) { c.TransformCacheTTL = strPtr("soon") }, true},
		{"good durations", func(c *Config) {
			c.TickInterval = strPtr("250ms")
			c.TransformCacheTTL = strPtr("1m")
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := validConfig()

	if got := cfg.GetTickInterval(); got != 500*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 500ms", got)
	}
	if got := cfg.GetQueueCapacity(); got != 1024 {
		t.Errorf("GetQueueCapacity() = %d, want 1024", got)
	}
	if got := cfg.GetTransformCacheTTL(); got != 30*time.Second {
		t.Errorf("GetTransformCacheTTL() = %v, want 30s", got)
	}
	if got := cfg.GetCovarianceScale(); got != 1.0 {
		t.Errorf("GetCovarianceScale() = %v, want 1.0", got)
	}
	if got := cfg.GetVisualScale(); got != 1.0 {
		t.Errorf("GetVisualScale() = %v, want 1.0", got)
	}
	if cfg.GetPlotEnabled() {
		t.Error("GetPlotEnabled() default = true, want false")
	}
	if got := cfg.GetPlotOutputDir(); got != "plots" {
		t.Errorf("GetPlotOutputDir() = %q, want plots", got)
	}
	if cfg.GetStrictVocabulary() {
		t.Error("GetStrictVocabulary() default = true, want false")
	}
	if cfg.GetLearnTriggersRecompute() {
		t.Error("GetLearnTriggersRecompute() default = true, want false")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recognition.json")
	data := `{
		"object_topic": "/objects",
		"scene_graph_topic": "/scene_graphs",
		"model_path": "model.json",
		"base_frame": "map",
		"inference_algorithm": "power-set",
		"tick_interval": "100ms",
		"frames": {"sensor/front": {"x": 1, "yaw": 0.5}}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := cfg.GetTickInterval(); got != 100*time.Millisecond {
		t.Errorf("tick interval = %v, want 100ms", got)
	}
	off, ok := cfg.Frames["sensor/front"]
	if !ok || off.X != 1 || off.Yaw != 0.5 {
		t.Errorf("frames = %+v, want sensor/front with x=1 yaw=0.5", cfg.Frames)
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	if _, err := Load("recognition.yaml"); err == nil {
		t.Error("non-JSON extension did not error")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"object_topic": "/objects"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("incomplete config did not error")
	}
}
