// Package frames transforms incoming object poses into the configured base
// frame. Frame offsets come from static configuration or an optional
// resolver; resolved offsets are held in a TTL cache so a slow resolver is
// only consulted once per frame per interval.
package frames

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/scene"
)

// ErrUnknownFrame is returned when no offset for the evidence frame can be
// resolved. Callers treat this as a per-item skip, never as fatal.
var ErrUnknownFrame = errors.New("unknown frame")

// Resolver looks up the offset of a frame in the base frame. Used for
// frames that are not statically configured.
type Resolver func(frame string) (config.FrameOffset, error)

// Service transforms evidence into the base frame.
type Service struct {
	baseFrame       string
	covarianceScale float64

	mu     sync.RWMutex
	static map[string]config.FrameOffset

	resolver Resolver
	cache    *gocache.Cache
}

// New builds a Service for baseFrame. Offsets in static are always
// available; cacheTTL bounds how long resolver results are reused.
func New(baseFrame string, covarianceScale float64, static map[string]config.FrameOffset, cacheTTL time.Duration) *Service {
	s := &Service{
		baseFrame:       baseFrame,
		covarianceScale: covarianceScale,
		static:          make(map[string]config.FrameOffset, len(static)),
		cache:           gocache.New(cacheTTL, 2*cacheTTL),
	}
	for name, off := range static {
		s.static[name] = off
	}
	return s
}

// SetResolver installs a dynamic frame resolver.
func (s *Service) SetResolver(r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = r
}

// RegisterFrame adds or replaces a static frame offset.
func (s *Service) RegisterFrame(name string, off config.FrameOffset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static[name] = off
}

// BaseFrame returns the target frame name.
func (s *Service) BaseFrame() string { return s.baseFrame }

func (s *Service) lookup(frame string) (config.FrameOffset, error) {
	s.mu.RLock()
	off, ok := s.static[frame]
	resolver := s.resolver
	s.mu.RUnlock()
	if ok {
		return off, nil
	}

	if cached, found := s.cache.Get(frame); found {
		return cached.(config.FrameOffset), nil
	}
	if resolver == nil {
		return config.FrameOffset{}, fmt.Errorf("%w: %q", ErrUnknownFrame, frame)
	}
	off, err := resolver(frame)
	if err != nil {
		return config.FrameOffset{}, fmt.Errorf("%w: %q: %v", ErrUnknownFrame, frame, err)
	}
	s.cache.Set(frame, off, gocache.DefaultExpiration)
	return off, nil
}

// Transform returns a copy of ev expressed in the base frame. The pose is
// rotated by the frame's yaw, translated by its offset, and the covariance
// is scaled by the configured multiplier. Evidence already in the base frame
// only gets the covariance scaling.
func (s *Service) Transform(ev scene.ObjectEvidence) (scene.ObjectEvidence, error) {
	out := ev
	out.Pose.Covariance = ev.Pose.Covariance * s.covarianceScale

	if ev.Frame == s.baseFrame {
		return out, nil
	}

	off, err := s.lookup(ev.Frame)
	if err != nil {
		return scene.ObjectEvidence{}, err
	}

	sin, cos := math.Sincos(off.Yaw)
	out.Pose.X = off.X + ev.Pose.X*cos - ev.Pose.Y*sin
	out.Pose.Y = off.Y + ev.Pose.X*sin + ev.Pose.Y*cos
	out.Pose.Z = off.Z + ev.Pose.Z
	out.Pose.Yaw = ev.Pose.Yaw + off.Yaw
	out.Frame = s.baseFrame
	return out, nil
}
