package cloud

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// sqrt3 is the length of the (1,1,1) scale vector.
var sqrt3 = float32(math.Sqrt(3))

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

// PointScale is the footprint multiplier for the rig's points: |scale| / sqrt(3).
// A uniform scale s yields s.
func (t Transform) PointScale() float32 {
	return t.Scale.Len() / sqrt3
}
