package depthcloud

import (
	"time"

	"github.com/gekko3d/depthcloud/cloud"
)

// FrameContext is the per-frame clock shared by all systems.
type FrameContext struct {
	Index uint64
	Time  time.Time
	Dt    time.Duration

	fixed time.Duration
	now   func() time.Time
}

// Frame returns the view of the clock handed to point cloud sources.
func (f *FrameContext) Frame() cloud.Frame {
	return cloud.Frame{Index: f.Index, Dt: f.Dt}
}

// TimeModule advances FrameContext in Prelude. A non-zero FixedDt makes the
// clock deterministic, for headless runs and tests.
type TimeModule struct {
	FixedDt time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&FrameContext{
		Time:  time.Now(),
		fixed: mod.FixedDt,
		now:   time.Now,
	})
	cmd.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(frame *FrameContext) {
	frame.Index++
	if frame.fixed > 0 {
		frame.Dt = frame.fixed
		frame.Time = frame.Time.Add(frame.fixed)
		return
	}

	now := frame.now()
	frame.Dt = now.Sub(frame.Time)
	frame.Time = now
}
