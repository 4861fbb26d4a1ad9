package window

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var keyToGlfw = map[depthcloud.Key]glfw.Key{
	depthcloud.KeyW:       glfw.KeyW,
	depthcloud.KeyA:       glfw.KeyA,
	depthcloud.KeyS:       glfw.KeyS,
	depthcloud.KeyD:       glfw.KeyD,
	depthcloud.KeyQ:       glfw.KeyQ,
	depthcloud.KeyE:       glfw.KeyE,
	depthcloud.KeyF:       glfw.KeyF,
	depthcloud.KeyH:       glfw.KeyH,
	depthcloud.KeyR:       glfw.KeyR,
	depthcloud.KeySpace:   glfw.KeySpace,
	depthcloud.KeyTab:     glfw.KeyTab,
	depthcloud.KeyEscape:  glfw.KeyEscape,
	depthcloud.KeyShift:   glfw.KeyLeftShift,
	depthcloud.KeyControl: glfw.KeyLeftControl,
}

var buttonToGlfw = map[depthcloud.Key]glfw.MouseButton{
	depthcloud.MouseButtonLeft:  glfw.MouseButtonLeft,
	depthcloud.MouseButtonRight: glfw.MouseButtonRight,
}

// SampleInput copies the current keyboard and mouse state into input.
func (w *Window) SampleInput(input *depthcloud.Input) {
	for key, gk := range keyToGlfw {
		input.SetKey(key, w.win.GetKey(gk) == glfw.Press)
	}
	for key, gb := range buttonToGlfw {
		input.SetKey(key, w.win.GetMouseButton(gb) == glfw.Press)
	}
	input.SetMouse(w.win.GetCursorPos())

	if input.MouseCaptured {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

// Module drives the window from the App: events and input in Prelude, frame
// acquisition in PreRender and presentation in PostRender. It needs InputModule.
type Module struct {
	Window     *Window
	ClearColor wgpu.Color
}

type windowResource struct {
	win   *Window
	clear wgpu.Color
}

func (mod Module) Install(app *depthcloud.App, cmd *depthcloud.Commands) {
	cmd.AddResources(&windowResource{win: mod.Window, clear: mod.ClearColor})
	cmd.UseSystem(depthcloud.System(windowEventsSystem).InStage(depthcloud.Prelude))
	cmd.UseSystem(depthcloud.System(windowBeginFrameSystem).InStage(depthcloud.PreRender))
	cmd.UseSystem(depthcloud.System(windowPresentSystem).InStage(depthcloud.PostRender))
}

func windowEventsSystem(res *windowResource, input *depthcloud.Input, cmd *depthcloud.Commands) {
	res.win.PollEvents()
	if res.win.ShouldClose() {
		cmd.Quit()
		return
	}
	res.win.SampleInput(input)
}

func windowBeginFrameSystem(res *windowResource, cmd *depthcloud.Commands) {
	if err := res.win.BeginFrame(res.clear); err != nil {
		cmd.Logger().Errorf("%v", err)
	}
}

func windowPresentSystem(res *windowResource) {
	res.win.EndFrame()
}
