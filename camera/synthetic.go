package camera

import (
	"math"
	"time"

	"github.com/gekko3d/depthcloud/cloud"
)

// Synthetic renders an animated rippling surface in front of the camera.
type Synthetic struct {
	name       string
	intrinsics Intrinsics
	distance   float32
	amplitude  float32
	speed      float32
	holeEvery  int

	frame   *frame
	xyzTex  cloud.StreamTexture
	colTex  cloud.StreamTexture
	elapsed time.Duration
	frames  uint64
	closed  bool
}

var _ Device = (*Synthetic)(nil)

type SyntheticOption func(*Synthetic)

// WithDistance sets the mean surface depth in meters.
func WithDistance(meters float32) SyntheticOption {
	return func(s *Synthetic) { s.distance = meters }
}

func WithAmplitude(meters float32) SyntheticOption {
	return func(s *Synthetic) { s.amplitude = meters }
}

// WithSpeed sets the ripple phase speed in radians per second.
func WithSpeed(radPerSec float32) SyntheticOption {
	return func(s *Synthetic) { s.speed = radPerSec }
}

// WithHoles drops depth on every n-th pixel, the way a stereo camera loses
// texture-less regions. Zero disables holes.
func WithHoles(n int) SyntheticOption {
	return func(s *Synthetic) { s.holeEvery = n }
}

func WithIntrinsics(in Intrinsics) SyntheticOption {
	return func(s *Synthetic) { s.intrinsics = in }
}

func WithCameraName(name string) SyntheticOption {
	return func(s *Synthetic) { s.name = name }
}

func NewSynthetic(dev cloud.StreamDevice, width, height int, opts ...SyntheticOption) (*Synthetic, error) {
	s := &Synthetic{
		name:       "synthetic",
		intrinsics: DefaultIntrinsics(width, height),
		distance:   2,
		amplitude:  0.15,
		speed:      2,
	}
	for _, opt := range opts {
		opt(s)
	}
	xyz, col, err := textures(dev, s.name, width, height)
	if err != nil {
		return nil, err
	}
	s.frame = newFrame(width, height)
	s.xyzTex = xyz
	s.colTex = col
	return s, nil
}

// IsReady reports whether a frame has been grabbed.
func (s *Synthetic) IsReady() bool                  { return !s.closed && s.frames > 0 }
func (s *Synthetic) ImageWidth() int                { return s.frame.width }
func (s *Synthetic) ImageHeight() int               { return s.frame.height }
func (s *Synthetic) PositionTexture() cloud.Texture { return s.xyzTex }
func (s *Synthetic) ColorTexture() cloud.Texture    { return s.colTex }
func (s *Synthetic) Frames() uint64                 { return s.frames }

func (s *Synthetic) Grab(dt time.Duration) error {
	if s.closed {
		return ErrClosed
	}
	s.elapsed += dt
	s.generate(float32(s.elapsed.Seconds()))
	s.xyzTex.Write(s.frame.xyz)
	s.colTex.Write(s.frame.color)
	s.frames++
	return nil
}

func (s *Synthetic) generate(t float32) {
	f := s.frame
	phase := float64(t * s.speed)
	for v := 0; v < f.height; v++ {
		for u := 0; u < f.width; u++ {
			i := v*f.width + u
			if s.holeEvery > 0 && i%s.holeEvery == s.holeEvery-1 {
				f.setInvalid(i)
				f.setColor(i, 0, 0, 0)
				continue
			}
			nx := float64(u)/float64(f.width) - 0.5
			ny := float64(v)/float64(f.height) - 0.5
			r := math.Hypot(nx, ny)
			ripple := float32(math.Sin(r*6*math.Pi - phase))
			z := s.distance + s.amplitude*ripple

			x, y, zc := s.intrinsics.Unproject(u, v, z)
			f.setPoint(i, x, y, zc)

			shade := 0.5 + 0.5*ripple
			f.setColor(i, uint8(255*nx+128), uint8(255*shade), uint8(255*(1-shade)))
		}
	}
}

func (s *Synthetic) Close() error {
	s.closed = true
	return nil
}
