package depthcloud

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/depthcloud/camera"
	"github.com/gekko3d/depthcloud/cloud"
)

// DepthCamera is a named camera SDK streaming into the point cloud sources.
type DepthCamera struct {
	Name   string
	Device camera.Device
}

// SourceSpec describes one point cloud source to create on install.
type SourceSpec struct {
	Name string
	// Camera names the DepthCamera to stream from. Empty uses the first one.
	Camera string
	// Transform defaults to the identity rig when nil.
	Transform      *cloud.Transform
	Hidden         bool
	Frozen         bool
	FreezeCopy     cloud.FreezeCopy
	ExcludedCamera *cloud.Camera
	Material       cloud.Material
}

// PointCloudModule streams depth cameras into point cloud sources and draws
// them through the RenderPipeline. It needs RenderModule.
type PointCloudModule struct {
	Settings cloud.Settings
	Device   cloud.Device
	Cameras  []DepthCamera
	Sources  []SourceSpec
}

// PointClouds is the resource holding the live sources and their cameras.
type PointClouds struct {
	registry *cloud.Registry
	device   cloud.Device
	logger   Logger
	cameras  []DepthCamera
	sources  []*cloud.Source
	grabErrs map[string]string
}

func (mod PointCloudModule) Install(app *App, cmd *Commands) {
	registry := cloud.NewRegistry()
	feature := cloud.NewFeature(registry, mod.Settings)

	pcs := &PointClouds{
		registry: registry,
		device:   mod.Device,
		logger:   app.Logger(),
		cameras:  slices.Clone(mod.Cameras),
		grabErrs: make(map[string]string),
	}
	for _, spec := range mod.Sources {
		if _, err := pcs.Add(spec); err != nil {
			panic(fmt.Sprintf("PointCloudModule: %v", err))
		}
	}

	cmd.AddResources(registry, feature, pcs)
	cmd.UseSystem(System(depthCameraSystem).InStage(PreUpdate))
	cmd.UseSystem(System(pointCloudUpdateSystem).InStage(PreRender))
	cmd.UseSystem(System(pointCloudEnqueueSystem).InStage(PreRender))
	cmd.UseSystem(System(pointCloudShutdownSystem).InStage(Finale))
}

func (p *PointClouds) Registry() *cloud.Registry { return p.registry }
func (p *PointClouds) Sources() []*cloud.Source  { return slices.Clone(p.sources) }

func (p *PointClouds) Source(name string) *cloud.Source {
	for _, s := range p.sources {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// DepthCamera returns the named camera, or the first one for an empty name.
func (p *PointClouds) DepthCamera(name string) (camera.Device, bool) {
	if name == "" {
		if len(p.cameras) == 0 {
			return nil, false
		}
		return p.cameras[0].Device, true
	}
	for _, c := range p.cameras {
		if c.Name == name {
			return c.Device, true
		}
	}
	return nil, false
}

// Add creates and activates a source.
func (p *PointClouds) Add(spec SourceSpec) (*cloud.Source, error) {
	if spec.Name != "" && p.Source(spec.Name) != nil {
		return nil, fmt.Errorf("source %q already exists", spec.Name)
	}
	if spec.Camera != "" {
		if _, ok := p.DepthCamera(spec.Camera); !ok {
			return nil, fmt.Errorf("source %q: unknown depth camera %q", spec.Name, spec.Camera)
		}
	}

	opts := []cloud.SourceOption{
		cloud.WithName(spec.Name),
		cloud.WithDevice(p.device),
		cloud.WithLogger(namedLogger(p.logger, spec.Name)),
		cloud.WithDisplay(!spec.Hidden),
		cloud.WithLive(!spec.Frozen),
		cloud.WithFreezeCopy(spec.FreezeCopy),
		cloud.WithExcludedCamera(spec.ExcludedCamera),
		cloud.WithSDKResolver(func() cloud.CameraSDK {
			if dev, ok := p.DepthCamera(spec.Camera); ok {
				return dev
			}
			return nil
		}),
	}
	if spec.Transform != nil {
		opts = append(opts, cloud.WithTransform(*spec.Transform))
	}
	if spec.Material != nil {
		opts = append(opts, cloud.WithMaterial(spec.Material))
	}

	src := cloud.NewSource(p.registry, opts...)
	src.Activate()
	p.sources = append(p.sources, src)
	p.logger.Infof("point cloud %q active (%s)", src.Name(), src.Readiness())
	return src, nil
}

// Remove destroys the named source.
func (p *PointClouds) Remove(name string) bool {
	i := slices.IndexFunc(p.sources, func(s *cloud.Source) bool { return s.Name() == name })
	if i < 0 {
		return false
	}
	p.sources[i].Destroy()
	p.sources = slices.Delete(p.sources, i, i+1)
	return true
}

// Close destroys every source and closes the depth cameras.
func (p *PointClouds) Close() error {
	for _, s := range p.sources {
		s.Destroy()
	}
	p.sources = nil

	var errs []error
	for _, c := range p.cameras {
		if err := c.Device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("depth camera %q: %w", c.Name, err))
		}
	}
	p.cameras = nil
	return errors.Join(errs...)
}

func depthCameraSystem(pcs *PointClouds, frame *FrameContext, cmd *Commands) {
	for _, c := range pcs.cameras {
		err := c.Device.Grab(frame.Dt)
		// Report each distinct failure once until the camera recovers.
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		if msg != pcs.grabErrs[c.Name] {
			if err != nil {
				cmd.Logger().Warnf("depth camera %q: %v", c.Name, err)
			} else {
				cmd.Logger().Infof("depth camera %q recovered", c.Name)
			}
			pcs.grabErrs[c.Name] = msg
		}
	}
}

func pointCloudUpdateSystem(pcs *PointClouds, frame *FrameContext, cmd *Commands) {
	f := frame.Frame()
	points := 0
	for _, s := range pcs.sources {
		if err := s.Update(f); err != nil {
			cmd.Logger().Errorf("point cloud update: %v", err)
		}
		if s.Readiness() == cloud.ReadinessReady && s.Display() {
			points += s.PointCount()
		}
	}
	if prof := cmd.app.profiler(); prof != nil {
		prof.SetCount(CounterSources, pcs.registry.Len())
		prof.SetCount(CounterPoints, points)
	}
}

func pointCloudEnqueueSystem(feature *cloud.Feature, pipeline *RenderPipeline) {
	feature.AddRenderPasses(pipeline)
}

func pointCloudShutdownSystem(pcs *PointClouds, cmd *Commands) {
	if !cmd.app.Stopped() {
		return
	}
	if err := pcs.Close(); err != nil {
		cmd.Logger().Errorf("point cloud shutdown: %v", err)
	}
}
