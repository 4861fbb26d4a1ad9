package depthcloud

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gekko3d/depthcloud/camera"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          LogConfig           `yaml:"log"`
	Render       RenderConfig        `yaml:"render"`
	Window       WindowConfig        `yaml:"window"`
	Cameras      []CameraConfig      `yaml:"cameras"`
	DepthCameras []DepthCameraConfig `yaml:"depth_cameras"`
	Sources      []SourceConfig      `yaml:"sources"`
}

type LogConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
	Level  Level  `yaml:"level"`
	// ProfileEvery logs profiler stats every n frames at debug level.
	ProfileEvery uint64 `yaml:"profile_every"`
}

// NewLogger builds a stdout/stderr logger at Level. Debug forces LevelDebug.
func (c LogConfig) NewLogger() *DefaultLogger {
	l := NewDefaultLogger(c.Prefix, false)
	l.SetLevel(c.Level)
	if c.Debug {
		l.SetDebug(true)
	}
	return l
}

type RenderConfig struct {
	cloud.Settings `yaml:",inline"`
	ClearColor     [4]float64 `yaml:"clear_color"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Headless renders with the in-memory backend for Frames frames.
	Headless bool          `yaml:"headless"`
	Frames   uint64        `yaml:"frames"`
	FixedDt  time.Duration `yaml:"fixed_dt"`
}

type CameraConfig struct {
	Name     string     `yaml:"name"`
	Fov      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	// Stereo renders the camera as a left and a right eye sharing one identity.
	Stereo bool    `yaml:"stereo"`
	IPD    float32 `yaml:"ipd"`
}

type DepthCameraConfig struct {
	Name string `yaml:"name"`
	// Kind is "synthetic" or "replay".
	Kind   string `yaml:"kind"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Holes  int    `yaml:"holes"`

	Dir        string             `yaml:"dir"`
	FPS        float64            `yaml:"fps"`
	Loop       *bool              `yaml:"loop"`
	DepthScale float32            `yaml:"depth_scale"`
	Intrinsics *camera.Intrinsics `yaml:"intrinsics"`
}

type SourceConfig struct {
	Name       string           `yaml:"name"`
	Camera     string           `yaml:"camera"`
	Hidden     bool             `yaml:"hidden"`
	Frozen     bool             `yaml:"frozen"`
	FreezeCopy cloud.FreezeCopy `yaml:"freeze_copy"`
	// HiddenFrom names a render camera that never sees this source.
	HiddenFrom string      `yaml:"hidden_from"`
	Position   [3]float32  `yaml:"position"`
	Rotation   [3]float32  `yaml:"rotation"` // euler degrees, applied Y, X, Z
	Scale      *[3]float32 `yaml:"scale"`
}

func DefaultConfig() Config {
	return Config{
		Log:    LogConfig{Prefix: "depthcloud"},
		Render: RenderConfig{Settings: cloud.DefaultSettings(), ClearColor: [4]float64{0.1, 0.1, 0.1, 1}},
		Window: WindowConfig{Title: "depthcloud", Width: 1280, Height: 720},
		Cameras: []CameraConfig{
			{Name: "main", Fov: 60, Near: 0.05, Far: 100, Position: [3]float32{0, 0, 1}, Target: [3]float32{0, 0, -2}},
		},
		DepthCameras: []DepthCameraConfig{
			{Name: "synthetic", Kind: "synthetic", Width: 320, Height: 180},
		},
		Sources: []SourceConfig{{Name: "cloud"}},
	}
}

// LoadConfig reads a YAML config. Missing fields keep their DefaultConfig values;
// list sections given in the file replace the default lists.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height))
	}
	if len(c.Cameras) == 0 {
		errs = append(errs, errors.New("at least one camera is required"))
	}
	cams := make(map[string]bool)
	for _, cc := range c.Cameras {
		if cams[cc.Name] {
			errs = append(errs, fmt.Errorf("camera %q: duplicate name", cc.Name))
		}
		cams[cc.Name] = true
	}
	depth := make(map[string]bool)
	for _, dc := range c.DepthCameras {
		if depth[dc.Name] {
			errs = append(errs, fmt.Errorf("depth camera %q: duplicate name", dc.Name))
		}
		depth[dc.Name] = true
		switch dc.Kind {
		case "synthetic":
			if dc.Width <= 0 || dc.Height <= 0 {
				errs = append(errs, fmt.Errorf("depth camera %q: invalid size %dx%d", dc.Name, dc.Width, dc.Height))
			}
		case "replay":
			if dc.Dir == "" {
				errs = append(errs, fmt.Errorf("depth camera %q: replay needs dir", dc.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("depth camera %q: unknown kind %q", dc.Name, dc.Kind))
		}
	}
	sources := make(map[string]bool)
	for _, sc := range c.Sources {
		if sc.Name != "" {
			if sources[sc.Name] {
				errs = append(errs, fmt.Errorf("source %q: duplicate name", sc.Name))
			}
			sources[sc.Name] = true
		}
		if sc.Camera != "" && !depth[sc.Camera] {
			errs = append(errs, fmt.Errorf("source %q: unknown depth camera %q", sc.Name, sc.Camera))
		}
		if sc.HiddenFrom != "" && !cams[sc.HiddenFrom] {
			errs = append(errs, fmt.Errorf("source %q: unknown camera %q", sc.Name, sc.HiddenFrom))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// BuildCameras creates the render cameras for a target of the given size.
// A stereo camera yields a left and a right eye view.
func (c Config) BuildCameras(width, height int) []*cloud.Camera {
	aspect := float32(width) / float32(max(height, 1))
	var out []*cloud.Camera
	for _, cc := range c.Cameras {
		cam := cloud.NewCamera(cc.Name)
		cam.Viewport = cloud.Viewport{Width: width, Height: height}
		cam.SetPerspective(cc.Fov, aspect, cc.Near, cc.Far)
		eye, target := mgl32.Vec3(cc.Position), mgl32.Vec3(cc.Target)
		cam.LookAt(eye, target)
		if !cc.Stereo {
			out = append(out, cam)
			continue
		}

		// Offset each eye along the camera's right axis.
		right := cam.View.Inv().Col(0).Vec3().Mul(cc.IPD / 2)
		up := mgl32.Vec3{0, 1, 0}
		out = append(out,
			cam.EyeView(cloud.EyeLeft, mgl32.LookAtV(eye.Sub(right), target.Sub(right), up)),
			cam.EyeView(cloud.EyeRight, mgl32.LookAtV(eye.Add(right), target.Add(right), up)),
		)
	}
	return out
}

// OpenDepthCameras opens every depth camera on dev. Cameras opened before a
// failure are closed.
func (c Config) OpenDepthCameras(dev cloud.StreamDevice) ([]DepthCamera, error) {
	var out []DepthCamera
	for _, dc := range c.DepthCameras {
		d, err := dc.open(dev)
		if err != nil {
			for _, o := range out {
				_ = o.Device.Close()
			}
			return nil, fmt.Errorf("depth camera %q: %w", dc.Name, err)
		}
		out = append(out, DepthCamera{Name: dc.Name, Device: d})
	}
	return out, nil
}

func (dc DepthCameraConfig) open(dev cloud.StreamDevice) (camera.Device, error) {
	switch dc.Kind {
	case "synthetic":
		opts := []camera.SyntheticOption{camera.WithCameraName(dc.Name), camera.WithHoles(dc.Holes)}
		if dc.Intrinsics != nil {
			opts = append(opts, camera.WithIntrinsics(*dc.Intrinsics))
		}
		return camera.NewSynthetic(dev, dc.Width, dc.Height, opts...)
	case "replay":
		opts := []camera.ReplayOption{camera.WithReplayName(dc.Name), camera.WithFrameRate(dc.FPS)}
		if dc.Loop != nil {
			opts = append(opts, camera.WithLoop(*dc.Loop))
		}
		if dc.DepthScale > 0 {
			opts = append(opts, camera.WithDepthScale(dc.DepthScale))
		}
		if dc.Intrinsics != nil {
			opts = append(opts, camera.WithReplayIntrinsics(*dc.Intrinsics))
		}
		return camera.OpenReplay(dev, dc.Dir, opts...)
	default:
		return nil, fmt.Errorf("unknown kind %q", dc.Kind)
	}
}

// SourceSpecs resolves the source sections against the render cameras.
func (c Config) SourceSpecs(cameras []*cloud.Camera) []SourceSpec {
	specs := make([]SourceSpec, 0, len(c.Sources))
	for _, sc := range c.Sources {
		t := cloud.NewTransform()
		t.Position = mgl32.Vec3(sc.Position)
		t.Rotation = mgl32.AnglesToQuat(
			mgl32.DegToRad(sc.Rotation[1]),
			mgl32.DegToRad(sc.Rotation[0]),
			mgl32.DegToRad(sc.Rotation[2]),
			mgl32.YXZ,
		)
		if sc.Scale != nil {
			t.Scale = mgl32.Vec3(*sc.Scale)
		}

		spec := SourceSpec{
			Name:       sc.Name,
			Camera:     sc.Camera,
			Transform:  &t,
			Hidden:     sc.Hidden,
			Frozen:     sc.Frozen,
			FreezeCopy: sc.FreezeCopy,
		}
		if sc.HiddenFrom != "" {
			for _, cam := range cameras {
				if cam.Name == sc.HiddenFrom {
					spec.ExcludedCamera = cam
					break
				}
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
