package cloud

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Eye selects which view of a stereo (XR multipass) rig a camera renders.
type Eye int

const (
	EyeMono Eye = iota
	EyeLeft
	EyeRight
)

var eyeNames = [...]string{EyeMono: "mono", EyeLeft: "left", EyeRight: "right"}

func (e Eye) String() string {
	if e >= 0 && int(e) < len(eyeNames) {
		return eyeNames[e]
	}
	return fmt.Sprintf("Eye(%d)", int(e))
}

func (e Eye) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Eye) UnmarshalText(text []byte) error {
	for i, name := range eyeNames {
		if name == string(text) {
			*e = Eye(i)
			return nil
		}
	}
	return fmt.Errorf("cloud: unknown eye %q", text)
}

type Viewport struct {
	X, Y          int
	Width, Height int
}

// Camera is one render target invocation. Cameras sharing an ID are the same
// camera seen from different eyes.
type Camera struct {
	ID         uuid.UUID
	Name       string
	Eye        Eye
	Viewport   Viewport
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

func NewCamera(name string) *Camera {
	return &Camera{
		ID:         uuid.New(),
		Name:       name,
		View:       mgl32.Ident4(),
		Projection: mgl32.Ident4(),
	}
}

// EyeView returns a copy of the camera rendering the given eye.
func (c *Camera) EyeView(eye Eye, view mgl32.Mat4) *Camera {
	cp := *c
	cp.Eye = eye
	cp.View = view
	return &cp
}

// LookAt points the camera from eye to target with a Y-up basis.
func (c *Camera) LookAt(eye, target mgl32.Vec3) {
	c.View = mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
}

func (c *Camera) SetPerspective(fovYDeg, aspect, near, far float32) {
	if aspect == 0 {
		aspect = 1
	}
	c.Projection = mgl32.Perspective(mgl32.DegToRad(fovYDeg), aspect, near, far)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.View)
}

// SameCamera reports whether a and b identify the same camera.
func SameCamera(a, b *Camera) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || a.ID == b.ID
}
