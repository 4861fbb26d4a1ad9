// Package window opens a glfw window with a WebGPU surface and the point
// cloud backend bound to it.
package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window must be created and used on the main OS thread.
type Window struct {
	win     *glfw.Window
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	config  *wgpu.SurfaceConfiguration

	width   int
	height  int
	resized bool

	depthTex  *wgpu.Texture
	depthView *wgpu.TextureView
	frameTex  *wgpu.Texture
	frameView *wgpu.TextureView

	backend *gpu.Device
	pool    *gpu.CommandPool

	// OnResize is called with the new framebuffer size before the next frame.
	OnResize func(width, height int)
}

// Open creates the window, the device and the swapchain. It calls glfw.Init;
// Close terminates glfw.
func Open(width, height int, title string, logger cloud.Logger) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // WebGPU owns the surface, no GL context
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: create: %w", err)
	}

	w := &Window{win: win, width: width, height: height}
	if err := w.createGpu(logger); err != nil {
		w.Close()
		return nil, err
	}

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, fw, fh int) {
		if fw > 0 && fh > 0 {
			w.width, w.height = fw, fh
			w.resized = true
		}
	})
	return w, nil
}

func (w *Window) createGpu(logger cloud.Logger) error {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	w.surface = instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(w.win))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: w.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("window: adapter: %w", err)
	}
	w.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "PointCloud Device",
	})
	if err != nil {
		return fmt.Errorf("window: device: %w", err)
	}
	w.device = device

	caps := w.surface.GetCapabilities(adapter)
	w.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(w.width),
		Height:      uint32(w.height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	w.surface.Configure(adapter, device, w.config)

	w.backend = gpu.NewDevice(device, w.config.Format, logger)
	w.pool = gpu.NewCommandPool(w.backend)
	return w.createDepth()
}

func (w *Window) createDepth() error {
	w.releaseDepth()
	tex, view, err := w.backend.CreateDepthTarget(w.width, w.height)
	if err != nil {
		return fmt.Errorf("window: depth target: %w", err)
	}
	w.depthTex, w.depthView = tex, view
	return nil
}

func (w *Window) releaseDepth() {
	if w.depthView != nil {
		w.depthView.Release()
		w.depthView = nil
	}
	if w.depthTex != nil {
		w.depthTex.Release()
		w.depthTex = nil
	}
}

// Device is the point cloud backend rendering into this window.
func (w *Window) Device() *gpu.Device { return w.backend }

// Pool hands out command buffers targeting the current frame.
func (w *Window) Pool() *gpu.CommandPool { return w.pool }

func (w *Window) Size() (int, int) { return w.width, w.height }

func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

func (w *Window) PollEvents() {
	if !w.win.ShouldClose() {
		glfw.PollEvents()
	}
}

// BeginFrame acquires the next swapchain image and points the pool at it.
func (w *Window) BeginFrame(clear wgpu.Color) error {
	if w.resized {
		w.resized = false
		w.config.Width = uint32(w.width)
		w.config.Height = uint32(w.height)
		w.surface.Configure(w.adapter, w.device, w.config)
		if err := w.createDepth(); err != nil {
			return err
		}
		if w.OnResize != nil {
			w.OnResize(w.width, w.height)
		}
	}

	tex, err := w.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("window: acquire frame: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("window: frame view: %w", err)
	}
	w.frameTex, w.frameView = tex, view
	w.pool.BeginFrame(gpu.Target{
		Color:      view,
		Depth:      w.depthView,
		Width:      w.width,
		Height:     w.height,
		ClearColor: clear,
	})
	return nil
}

// EndFrame presents the frame acquired by BeginFrame.
func (w *Window) EndFrame() {
	if w.frameView == nil {
		return
	}
	w.surface.Present()
	w.frameView.Release()
	w.frameTex.Release()
	w.frameView, w.frameTex = nil, nil
	w.pool.BeginFrame(gpu.Target{})
}

func (w *Window) Close() {
	if w.pool != nil {
		w.pool.Destroy()
	}
	w.releaseDepth()
	if w.device != nil {
		w.device.Release()
	}
	if w.adapter != nil {
		w.adapter.Release()
	}
	if w.surface != nil {
		w.surface.Release()
	}
	if w.win != nil {
		w.win.Destroy()
	}
	glfw.Terminate()
}
