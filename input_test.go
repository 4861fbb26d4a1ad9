package depthcloud

import (
	"testing"
	"time"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_KeyEdges(t *testing.T) {
	in := &Input{}

	in.SetKey(KeyF, true)
	assert.True(t, in.Pressed[KeyF])
	assert.True(t, in.JustPressed[KeyF])

	in.SetKey(KeyF, true)
	assert.False(t, in.JustPressed[KeyF], "held, not pressed again")

	in.SetKey(KeyF, false)
	assert.False(t, in.Pressed[KeyF])
	assert.True(t, in.JustReleased[KeyF])

	in.SetKey(Key(-1), true)
	in.SetKey(keyCount, true)
	assert.Len(t, Keys(), int(keyCount))
}

func TestInput_MouseDeltaOnlyWhenCaptured(t *testing.T) {
	in := &Input{}
	in.SetMouse(10, 10)
	in.SetMouse(20, 15)
	assert.Zero(t, in.MouseDeltaX)

	in.MouseCaptured = true
	in.SetMouse(25, 5)
	assert.Equal(t, 5.0, in.MouseDeltaX)
	assert.Equal(t, -10.0, in.MouseDeltaY)
}

func TestFlyingCamera_Moves(t *testing.T) {
	cam := cloud.NewCamera("main")
	app := NewAppBuilder().UseModule(
		TimeModule{FixedDt: 500 * time.Millisecond},
		InputModule{},
		FlyingCameraModule{Cameras: []*cloud.Camera{cam}},
	).Build()
	input, _ := Resource[Input](app)
	fly, ok := Resource[FlyingCamera](app)
	require.True(t, ok)

	input.SetKey(KeyW, true)
	app.Step()

	// Default yaw looks down -Z at 2 m/s for half a second.
	assert.InDelta(t, -1.0, fly.Position.Z(), 1e-5)
	eye := cam.View.Inv().Col(3).Vec3()
	assert.InDelta(t, -1.0, eye.Z(), 1e-4)

	input.SetKey(KeyW, false)
	input.SetKey(KeyTab, true)
	app.Step()
	assert.True(t, input.MouseCaptured)

	input.SetKey(KeyTab, true) // held
	input.MouseDeltaX = 900
	input.MouseDeltaY = -2000
	app.Step()
	assert.InDelta(t, 90.0, fly.Yaw, 1e-4)
	assert.Equal(t, float32(89), fly.Pitch, "pitch is clamped")
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, fly.Position, "no keys held")
}

func TestFlyingCamera_MovesStereoRig(t *testing.T) {
	rig := cloud.NewCamera("headset")
	left := rig.EyeView(cloud.EyeLeft, mgl32.Ident4())
	right := rig.EyeView(cloud.EyeRight, mgl32.Ident4())
	app := NewAppBuilder().UseModule(
		TimeModule{FixedDt: 500 * time.Millisecond},
		InputModule{},
		FlyingCameraModule{Cameras: []*cloud.Camera{left, right}, IPD: 0.064},
	).Build()
	input, _ := Resource[Input](app)

	input.SetKey(KeyW, true)
	app.Step()

	l := left.View.Inv().Col(3).Vec3()
	r := right.View.Inv().Col(3).Vec3()
	assert.InDelta(t, -1.0, l.Z(), 1e-4)
	assert.InDelta(t, -1.0, r.Z(), 1e-4, "both eyes move")
	assert.InDelta(t, -0.032, l.X(), 1e-4)
	assert.InDelta(t, 0.032, r.X(), 1e-4)
}

func TestPointCloudControls(t *testing.T) {
	h := newHarness(t, nil, func(*harness) []SourceSpec { return []SourceSpec{{Name: "cloud"}} })
	PointCloudControlsModule{}.Install(h.app, h.app.Commands())
	InputModule{}.Install(h.app, h.app.Commands())
	input, _ := Resource[Input](h.app)
	src := h.clouds.Source("cloud")

	input.SetKey(KeyF, true)
	h.app.Step()
	assert.False(t, src.Live())
	assert.True(t, src.Frozen())

	input.SetKey(KeyF, false)
	input.SetKey(KeyH, true)
	h.app.Step()
	assert.False(t, src.Display())

	input.SetKey(KeyEscape, true)
	h.app.Step()
	assert.True(t, h.app.Stopped())
}
