// Package scene implements the probabilistic scene recognition model: the
// vocabulary-backed probability tables, the combinatorial background
// inference strategies, and the scene model that turns object-detection
// evidence into a ranked list of scene likelihoods.
package scene

// Pose is the position and orientation of a detected object. Orientation is
// reduced to a yaw about +Z; the sensors this system consumes report objects
// on the ground plane. Covariance is a scalar position uncertainty in meters.
type Pose struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Yaw        float64 `json:"yaw"`
	Covariance float64 `json:"covariance,omitempty"`
}

// ObjectEvidence is one timestamped, typed object observation. Evidence is
// immutable once created; the transform service returns a transformed copy
// rather than mutating in place.
type ObjectEvidence struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Frame       string `json:"frame"`
	Pose        Pose   `json:"pose"`
	TimestampNs int64  `json:"timestamp_ns"`
}

// GraphExample is a labeled historical scene instance used for learning. The
// identifier names the scene the contained evidence belongs to. Examples are
// never used for live inference.
type GraphExample struct {
	Identifier string           `json:"identifier"`
	Evidence   []ObjectEvidence `json:"evidence"`
}
