package cloud

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// PassEvent places a pass within the frame's render pipeline.
// Passes run in ascending event order.
type PassEvent int

const (
	BeforeRendering             PassEvent = 0
	BeforeRenderingShadows      PassEvent = 50
	AfterRenderingShadows       PassEvent = 100
	BeforeRenderingPrePasses    PassEvent = 150
	AfterRenderingPrePasses     PassEvent = 200
	BeforeRenderingOpaques      PassEvent = 250
	AfterRenderingOpaques       PassEvent = 300
	BeforeRenderingSkybox       PassEvent = 350
	AfterRenderingSkybox        PassEvent = 400
	BeforeRenderingTransparents PassEvent = 450
	AfterRenderingTransparents  PassEvent = 500
	BeforeRenderingPostProcess  PassEvent = 550
	AfterRenderingPostProcess   PassEvent = 600
	AfterRendering              PassEvent = 1000
)

var passEventNames = map[PassEvent]string{
	BeforeRendering:             "BeforeRendering",
	BeforeRenderingShadows:      "BeforeRenderingShadows",
	AfterRenderingShadows:       "AfterRenderingShadows",
	BeforeRenderingPrePasses:    "BeforeRenderingPrePasses",
	AfterRenderingPrePasses:     "AfterRenderingPrePasses",
	BeforeRenderingOpaques:      "BeforeRenderingOpaques",
	AfterRenderingOpaques:       "AfterRenderingOpaques",
	BeforeRenderingSkybox:       "BeforeRenderingSkybox",
	AfterRenderingSkybox:        "AfterRenderingSkybox",
	BeforeRenderingTransparents: "BeforeRenderingTransparents",
	AfterRenderingTransparents:  "AfterRenderingTransparents",
	BeforeRenderingPostProcess:  "BeforeRenderingPostProcess",
	AfterRenderingPostProcess:   "AfterRenderingPostProcess",
	AfterRendering:              "AfterRendering",
}

func (e PassEvent) String() string {
	if name, ok := passEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("PassEvent(%d)", int(e))
}

func (e PassEvent) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *PassEvent) UnmarshalText(text []byte) error {
	for ev, name := range passEventNames {
		if name == string(text) {
			*e = ev
			return nil
		}
	}
	return fmt.Errorf("cloud: unknown pass event %q", text)
}

// RenderingData is what the host pipeline hands a pass for one camera.
type RenderingData struct {
	Camera   *Camera
	Commands CommandBuffer
}

type Pass interface {
	Event() PassEvent
	// Execute records the pass for one camera and returns the draws issued.
	Execute(data RenderingData) int
}

// PassQueue is the host pipeline's pass registration point.
type PassQueue interface {
	EnqueuePass(p Pass)
}

const PassProfilerTag = "ZED PointCloud Pass"

// RenderPass draws every registered source visible to the current camera.
type RenderPass struct {
	event    PassEvent
	tag      string
	registry *Registry
}

var _ Pass = (*RenderPass)(nil)

func NewRenderPass(registry *Registry, event PassEvent) *RenderPass {
	return &RenderPass{
		event:    event,
		tag:      PassProfilerTag,
		registry: registry,
	}
}

func (p *RenderPass) Event() PassEvent { return p.event }

// Execute issues one procedural point draw per visible, ready source: a
// single vertex instanced PointCount times. The per-source transform comes
// from the material's _Position, so the draw matrix is identity.
func (p *RenderPass) Execute(data RenderingData) int {
	cmd := data.Commands
	if cmd == nil || p.registry == nil {
		return 0
	}

	draws := 0
	cmd.BeginSample(p.tag)
	for _, src := range p.registry.Snapshot() {
		if src == nil {
			continue
		}
		if !src.ShouldRenderForCamera(data.Camera) {
			continue
		}
		mat := src.Material()
		count := src.PointCount()
		if mat == nil || count <= 0 {
			continue
		}
		cmd.DrawProcedural(mgl32.Ident4(), mat, 0, TopologyPoints, 1, count)
		draws++
	}
	cmd.EndSample(p.tag)
	return draws
}

// Settings configure the point cloud renderer feature.
type Settings struct {
	PassEvent PassEvent `yaml:"pass_event"`
}

func DefaultSettings() Settings {
	return Settings{PassEvent: AfterRenderingOpaques}
}

// Feature owns the point cloud pass and enqueues it into the pipeline every frame.
type Feature struct {
	Settings Settings
	registry *Registry
	pass     *RenderPass
}

func NewFeature(registry *Registry, settings Settings) *Feature {
	f := &Feature{Settings: settings, registry: registry}
	f.Create()
	return f
}

// Create rebuilds the pass from the current settings.
func (f *Feature) Create() {
	f.pass = NewRenderPass(f.registry, f.Settings.PassEvent)
}

func (f *Feature) AddRenderPasses(queue PassQueue) {
	if f.pass == nil {
		f.Create()
	}
	queue.EnqueuePass(f.pass)
}

func (f *Feature) Pass() *RenderPass { return f.pass }
