package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/soft"
	"github.com/gekko3d/depthcloud/window"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	headless := flag.Bool("headless", false, "Render with the in-memory backend, without a window")
	frames := flag.Uint64("frames", 0, "Stop after this many frames (0 runs until the window closes)")
	flag.Parse()

	cfg := depthcloud.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = depthcloud.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if *headless {
		cfg.Window.Headless = true
	}
	if *frames > 0 {
		cfg.Window.Frames = *frames
	}

	if cfg.Window.Headless {
		if err := runHeadless(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := runWindow(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHeadless(cfg depthcloud.Config) error {
	logger := cfg.Log.NewLogger()
	dev := soft.NewDevice()
	pool := soft.NewCommandPool()

	fixed := cfg.Window.FixedDt
	if fixed <= 0 {
		fixed = time.Second / 60
	}
	limit := cfg.Window.Frames
	if limit == 0 {
		limit = 60
	}

	cameras := cfg.BuildCameras(cfg.Window.Width, cfg.Window.Height)
	app, err := buildApp(cfg, logger, dev, dev, pool, fixed, cameras)
	if err != nil {
		return err
	}
	app.UseSystem(depthcloud.System(func(cmd *depthcloud.Commands, frame *depthcloud.FrameContext) {
		for _, cb := range pool.Submitted {
			logger.Debugf("frame %d: %s drew %d points in %d calls", frame.Index, cb.Name, cb.Points(), len(cb.Draws))
		}
		pool.Recycle()
		if frame.Index >= limit {
			cmd.Quit()
		}
	}).InStage(depthcloud.PostRender))

	app.Run()
	return nil
}

func runWindow(cfg depthcloud.Config) error {
	logger := cfg.Log.NewLogger()
	win, err := window.Open(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, logger)
	if err != nil {
		return err
	}
	defer win.Close()

	w, h := win.Size()
	cameras := cfg.BuildCameras(w, h)
	first := cfg.Cameras[0]
	clearColor := wgpu.Color{
		R: cfg.Render.ClearColor[0],
		G: cfg.Render.ClearColor[1],
		B: cfg.Render.ClearColor[2],
		A: cfg.Render.ClearColor[3],
	}

	app, err := buildApp(cfg, logger, win.Device(), win.Device(), win.Pool(), cfg.Window.FixedDt, cameras,
		depthcloud.InputModule{},
		window.Module{Window: win, ClearColor: clearColor},
		depthcloud.FlyingCameraModule{
			Cameras:  rigCameras(cameras, cameras[0]),
			IPD:      first.IPD,
			Position: mgl32.Vec3(first.Position),
			Yaw:      yawTowards(first.Position, first.Target),
		},
		depthcloud.PointCloudControlsModule{},
	)
	if err != nil {
		return err
	}

	lenses := make(map[string]depthcloud.CameraConfig, len(cfg.Cameras))
	for _, cc := range cfg.Cameras {
		lenses[cc.Name] = cc
	}
	win.OnResize = func(width, height int) {
		aspect := float32(width) / float32(height)
		for _, cam := range cameras {
			cc := lenses[cam.Name]
			cam.Viewport = cloud.Viewport{Width: width, Height: height}
			cam.SetPerspective(cc.Fov, aspect, cc.Near, cc.Far)
		}
	}

	if limit := cfg.Window.Frames; limit > 0 {
		app.UseSystem(depthcloud.System(func(cmd *depthcloud.Commands, frame *depthcloud.FrameContext) {
			if frame.Index >= limit {
				cmd.Quit()
			}
		}).InStage(depthcloud.PostRender))
	}

	app.Run()
	return nil
}

// rigCameras returns every camera sharing rig's ID, so both eyes of a stereo
// rig fly together.
func rigCameras(cameras []*cloud.Camera, rig *cloud.Camera) []*cloud.Camera {
	var out []*cloud.Camera
	for _, cam := range cameras {
		if cloud.SameCamera(cam, rig) {
			out = append(out, cam)
		}
	}
	return out
}

// yawTowards returns the flying camera yaw, in degrees, facing from eye to target.
func yawTowards(eye, target [3]float32) float32 {
	dx := float64(target[0] - eye[0])
	dz := float64(target[2] - eye[2])
	if dx == 0 && dz == 0 {
		return 0
	}
	return float32(math.Atan2(dx, -dz) * 180 / math.Pi)
}

func buildApp(
	cfg depthcloud.Config,
	logger depthcloud.Logger,
	dev cloud.Device,
	stream cloud.StreamDevice,
	pool cloud.CommandPool,
	fixedDt time.Duration,
	cameras []*cloud.Camera,
	extra ...depthcloud.Module,
) (*depthcloud.App, error) {
	depthCams, err := cfg.OpenDepthCameras(stream)
	if err != nil {
		return nil, err
	}

	app := depthcloud.NewAppBuilder().
		UseModule(
			depthcloud.LoggingModule{Logger: logger},
			depthcloud.TimeModule{FixedDt: fixedDt},
			depthcloud.ProfilerModule{ReportEvery: cfg.Log.ProfileEvery},
			depthcloud.RenderModule{Pool: pool, Cameras: cameras},
			depthcloud.PointCloudModule{
				Settings: cfg.Render.Settings,
				Device:   dev,
				Cameras:  depthCams,
				Sources:  cfg.SourceSpecs(cameras),
			},
		).
		UseModule(extra...).
		Build()
	return app, nil
}
