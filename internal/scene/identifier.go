package scene

// Identifier is the per-scene output record recomputed every inference
// cycle. Likelihood is the post-evidence probability normalized across all
// scenes; Priori is the scene's independently configured prior and is never
// renormalized.
type Identifier struct {
	SceneID     string  `json:"scene_id"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Likelihood  float64 `json:"likelihood"`
	Priori      float64 `json:"priori"`
}
