package depthcloud

import (
	"math"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCamera steers a camera rig with WASD, Space/Control and the
// captured mouse. Tab toggles mouse capture. Left and right eyes of a stereo
// rig sit IPD apart along the rig's right axis.
type FlyingCamera struct {
	Cameras     []*cloud.Camera
	IPD         float32 // meters
	Position    mgl32.Vec3
	Yaw         float32 // degrees, 0 looks down -Z
	Pitch       float32 // degrees
	Speed       float32 // meters per second
	Sensitivity float32 // degrees per pixel
}

type FlyingCameraModule struct {
	Cameras  []*cloud.Camera
	IPD      float32
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&FlyingCamera{
		Cameras:     m.Cameras,
		IPD:         m.IPD,
		Position:    m.Position,
		Yaw:         m.Yaw,
		Pitch:       m.Pitch,
		Speed:       2,
		Sensitivity: 0.1,
	})
	cmd.UseSystem(System(flyingCameraSystem).InStage(Update))
}

func (fly *FlyingCamera) forward() mgl32.Vec3 {
	yawRad := float64(mgl32.DegToRad(fly.Yaw))
	pitchRad := float64(mgl32.DegToRad(fly.Pitch))
	return mgl32.Vec3{
		float32(math.Sin(yawRad) * math.Cos(pitchRad)),
		float32(math.Sin(pitchRad)),
		float32(-math.Cos(yawRad) * math.Cos(pitchRad)),
	}.Normalize()
}

func flyingCameraSystem(input *Input, frame *FrameContext, fly *FlyingCamera) {
	if len(fly.Cameras) == 0 {
		return
	}
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	if input.MouseCaptured {
		fly.Yaw += float32(input.MouseDeltaX) * fly.Sensitivity
		fly.Pitch -= float32(input.MouseDeltaY) * fly.Sensitivity
	}
	fly.Pitch = mgl32.Clamp(fly.Pitch, -89, 89)

	forward := fly.forward()
	up := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(up).Normalize()

	var move mgl32.Vec3
	if input.Pressed[KeyW] {
		move = move.Add(forward)
	}
	if input.Pressed[KeyS] {
		move = move.Sub(forward)
	}
	if input.Pressed[KeyD] {
		move = move.Add(right)
	}
	if input.Pressed[KeyA] {
		move = move.Sub(right)
	}
	if input.Pressed[KeySpace] {
		move = move.Add(up)
	}
	if input.Pressed[KeyControl] {
		move = move.Sub(up)
	}

	dt := float32(frame.Dt.Seconds())
	if move.Len() > 0 && dt > 0 {
		speed := fly.Speed
		if input.Pressed[KeyShift] {
			speed *= 4
		}
		fly.Position = fly.Position.Add(move.Normalize().Mul(speed * dt))
	}

	for _, cam := range fly.Cameras {
		eye := fly.Position.Add(right.Mul(eyeOffset(cam.Eye, fly.IPD)))
		cam.LookAt(eye, eye.Add(forward))
	}
}

func eyeOffset(eye cloud.Eye, ipd float32) float32 {
	switch eye {
	case cloud.EyeLeft:
		return -ipd / 2
	case cloud.EyeRight:
		return ipd / 2
	default:
		return 0
	}
}
