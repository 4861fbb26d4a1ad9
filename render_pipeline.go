package depthcloud

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/depthcloud/cloud"
)

var ErrNoCommandPool = errors.New("depthcloud: render pipeline has no command pool")

type RenderStats struct {
	Cameras int
	Passes  int
	Draws   int
}

// RenderPipeline collects the passes enqueued during a frame and executes
// them, ordered by pass event, once per active camera.
type RenderPipeline struct {
	pool    cloud.CommandPool
	cameras []*cloud.Camera
	queue   []cloud.Pass
	stats   RenderStats
}

var _ cloud.PassQueue = (*RenderPipeline)(nil)

func NewRenderPipeline(pool cloud.CommandPool, cameras ...*cloud.Camera) *RenderPipeline {
	return &RenderPipeline{pool: pool, cameras: slices.Clone(cameras)}
}

func (p *RenderPipeline) SetCommandPool(pool cloud.CommandPool) { p.pool = pool }

// AddCamera appends cameras to the render order. XR eyes are added as
// separate cameras sharing an ID.
func (p *RenderPipeline) AddCamera(cams ...*cloud.Camera) {
	for _, c := range cams {
		if c != nil && !slices.Contains(p.cameras, c) {
			p.cameras = append(p.cameras, c)
		}
	}
}

func (p *RenderPipeline) RemoveCamera(cam *cloud.Camera) {
	p.cameras = slices.DeleteFunc(p.cameras, func(c *cloud.Camera) bool { return c == cam })
}

func (p *RenderPipeline) Cameras() []*cloud.Camera { return slices.Clone(p.cameras) }

// Camera returns the first camera with the given name.
func (p *RenderPipeline) Camera(name string) *cloud.Camera {
	for _, c := range p.cameras {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (p *RenderPipeline) EnqueuePass(pass cloud.Pass) {
	if pass != nil {
		p.queue = append(p.queue, pass)
	}
}

func (p *RenderPipeline) Stats() RenderStats { return p.stats }

// Render executes and clears the queued passes. A camera whose command buffer
// cannot be acquired is skipped; the other cameras still render.
func (p *RenderPipeline) Render() (RenderStats, error) {
	passes := slices.Clone(p.queue)
	p.queue = p.queue[:0]
	slices.SortStableFunc(passes, func(a, b cloud.Pass) int { return int(a.Event()) - int(b.Event()) })

	stats := RenderStats{Passes: len(passes)}
	if p.pool == nil {
		p.stats = stats
		if len(passes) == 0 {
			return stats, nil
		}
		return stats, ErrNoCommandPool
	}

	var errs []error
	for _, cam := range p.cameras {
		cmd, err := p.pool.Get(cam)
		if err != nil {
			errs = append(errs, fmt.Errorf("camera %q: %w", cam.Name, err))
			continue
		}
		for _, pass := range passes {
			stats.Draws += pass.Execute(cloud.RenderingData{Camera: cam, Commands: cmd})
		}
		if err := p.pool.Release(cmd); err != nil {
			errs = append(errs, fmt.Errorf("camera %q: %w", cam.Name, err))
			continue
		}
		stats.Cameras++
	}
	p.stats = stats
	return stats, errors.Join(errs...)
}

// RenderModule installs the RenderPipeline and renders it in the Render stage.
type RenderModule struct {
	Pool    cloud.CommandPool
	Cameras []*cloud.Camera
}

func (mod RenderModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewRenderPipeline(mod.Pool, mod.Cameras...))
	cmd.UseSystem(System(renderSystem).InStage(Render))
}

func renderSystem(pipeline *RenderPipeline, cmd *Commands) {
	stats, err := pipeline.Render()
	if err != nil {
		cmd.Logger().Errorf("render: %v", err)
	}
	if prof := cmd.app.profiler(); prof != nil {
		prof.SetCount(CounterCameras, stats.Cameras)
		prof.SetCount(CounterDraws, stats.Draws)
	}
}
