package cloud

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Frame identifies the frame a source update belongs to.
type Frame struct {
	Index uint64
	Dt    time.Duration
}

// Readiness reports whether a source can be drawn.
type Readiness int

const (
	ReadinessNoMaterial Readiness = iota
	ReadinessNoPoints
	ReadinessReady
)

func (r Readiness) String() string {
	switch r {
	case ReadinessNoMaterial:
		return "NoMaterial"
	case ReadinessNoPoints:
		return "NoPoints"
	case ReadinessReady:
		return "Ready"
	default:
		return fmt.Sprintf("Readiness(%d)", int(r))
	}
}

// FreezeCopy selects when a frozen source copies the live frame.
type FreezeCopy int

const (
	// CopyOnFreeze snapshots the live frame once when the source freezes.
	CopyOnFreeze FreezeCopy = iota
	// CopyEveryFrame re-copies the live frame on every frozen update.
	CopyEveryFrame
)

func (m FreezeCopy) String() string {
	switch m {
	case CopyOnFreeze:
		return "on_freeze"
	case CopyEveryFrame:
		return "every_frame"
	default:
		return fmt.Sprintf("FreezeCopy(%d)", int(m))
	}
}

func (m FreezeCopy) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FreezeCopy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "on_freeze", "":
		*m = CopyOnFreeze
	case "every_frame":
		*m = CopyEveryFrame
	default:
		return fmt.Errorf("cloud: unknown freeze copy mode %q", text)
	}
	return nil
}

type propertyIDs struct {
	position   PropertyID
	colorTex   PropertyID
	xyzTex     PropertyID
	scaleSize  PropertyID
	registered bool
}

// Source streams one camera rig's XYZ and color frames into a material.
type Source struct {
	id       uuid.UUID
	name     string
	registry *Registry
	device   Device
	logger   Logger

	sdk         CameraSDK
	sdkResolver func() CameraSDK

	display   bool
	live      bool
	excluded  *Camera
	transform Transform

	material Material
	props    propertyIDs

	xyzTex    Texture
	colorTex  Texture
	xyzCopy   RenderTexture
	colorCopy RenderTexture
	freeze    FreezeCopy
	captured  bool

	pointCount int
	lastFrame  uint64
	active     bool
}

type SourceOption func(*Source)

func WithName(name string) SourceOption {
	return func(s *Source) { s.name = name }
}

func WithSDK(sdk CameraSDK) SourceOption {
	return func(s *Source) { s.sdk = sdk }
}

// WithSDKResolver sets the lookup used on activation when no SDK was given.
func WithSDKResolver(fn func() CameraSDK) SourceOption {
	return func(s *Source) { s.sdkResolver = fn }
}

func WithMaterial(m Material) SourceOption {
	return func(s *Source) { s.material = m }
}

func WithDevice(d Device) SourceOption {
	return func(s *Source) { s.device = d }
}

func WithLogger(l Logger) SourceOption {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTransform(t Transform) SourceOption {
	return func(s *Source) { s.transform = t }
}

func WithDisplay(display bool) SourceOption {
	return func(s *Source) { s.display = display }
}

// WithLive sets whether the source follows the live stream (true) or shows a frozen snapshot.
func WithLive(live bool) SourceOption {
	return func(s *Source) { s.live = live }
}

func WithFreezeCopy(mode FreezeCopy) SourceOption {
	return func(s *Source) { s.freeze = mode }
}

func WithExcludedCamera(cam *Camera) SourceOption {
	return func(s *Source) { s.excluded = cam }
}

// NewSource creates an inactive source. Call Activate to register it.
func NewSource(registry *Registry, opts ...SourceOption) *Source {
	s := &Source{
		id:        uuid.New(),
		registry:  registry,
		logger:    nopLogger{},
		display:   true,
		live:      true,
		transform: NewTransform(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = "pointcloud-" + s.id.String()[:8]
	}
	s.resolveProperties()
	return s
}

// Activate binds the SDK and a material if missing, then registers the source.
// A missing shader is logged and leaves the source registered but invisible.
func (s *Source) Activate() {
	if s.sdk == nil && s.sdkResolver != nil {
		s.sdk = s.sdkResolver()
	}
	if s.sdk == nil {
		s.logger.Debugf("%s: no camera SDK bound", s.name)
	}

	if s.material == nil && s.device != nil {
		m, err := s.device.NewMaterial(DefaultShaderName)
		if err != nil {
			s.logger.Warnf("%s: no point cloud material: %v", s.name, err)
		} else {
			s.material = m
		}
	}
	if s.material == nil {
		s.logger.Warnf("%s: material missing, point cloud will not be drawn", s.name)
	}
	s.resolveProperties()

	if s.registry != nil {
		s.registry.Register(s)
	}
	s.active = true
}

// Deactivate unregisters the source. Resources stay allocated until Destroy.
func (s *Source) Deactivate() {
	if s.registry != nil {
		s.registry.Unregister(s)
	}
	s.active = false
}

// Destroy unregisters the source and releases its frozen copies.
// It is safe without a prior Activate and safe to call twice.
func (s *Source) Destroy() {
	s.Deactivate()
	s.material = nil
	s.props = propertyIDs{}
	if s.xyzCopy != nil {
		s.xyzCopy.Release()
		s.xyzCopy = nil
	}
	if s.colorCopy != nil {
		s.colorCopy.Release()
		s.colorCopy = nil
	}
}

func (s *Source) resolveProperties() {
	if s.material == nil || s.props.registered {
		return
	}
	s.props = propertyIDs{
		position:   s.material.PropertyID(PropPosition),
		colorTex:   s.material.PropertyID(PropColorTex),
		xyzTex:     s.material.PropertyID(PropXYZTex),
		scaleSize:  s.material.PropertyID(PropScaleSizeMultiplier),
		registered: true,
	}
}

// Update pulls the current frame and refreshes the material bindings.
// It is a no-op while the SDK is absent or not streaming. While frozen the
// copies are bound; the SDK keeps producing frames into the live textures.
// The only error is a failed frozen copy allocation, in which case the
// previous bindings are kept.
func (s *Source) Update(frame Frame) error {
	if s.sdk == nil || !s.sdk.IsReady() {
		return nil
	}
	s.lastFrame = frame.Index

	if s.pointCount == 0 {
		s.xyzTex = s.sdk.PositionTexture()
		s.colorTex = s.sdk.ColorTexture()
		s.pointCount = s.sdk.ImageWidth() * s.sdk.ImageHeight()
		s.bindTextures(s.xyzTex, s.colorTex)
		s.logger.Debugf("%s: streaming %dx%d (%d points) from frame %d",
			s.name, s.sdk.ImageWidth(), s.sdk.ImageHeight(), s.pointCount, frame.Index)
	}

	if !s.live {
		if err := s.ensureFrozenCopies(); err != nil {
			return err
		}
		if !s.captured || s.freeze == CopyEveryFrame {
			if s.xyzCopy != nil {
				s.device.Blit(s.xyzTex, s.xyzCopy)
			}
			if s.colorCopy != nil {
				s.device.Blit(s.colorTex, s.colorCopy)
			}
			s.captured = true
		}
		s.bindTextures(s.xyzCopy, s.colorCopy)
	} else {
		s.captured = false
		s.bindTextures(s.xyzTex, s.colorTex)
	}

	if s.material != nil {
		s.material.SetMatrix(s.props.position, s.transform.ObjectToWorld())
		s.material.SetFloat(s.props.scaleSize, s.transform.PointScale())
	}
	return nil
}

func (s *Source) ensureFrozenCopies() error {
	if s.device == nil {
		return fmt.Errorf("%s: freeze requires a device", s.name)
	}
	if s.xyzTex != nil && s.xyzCopy == nil {
		tex, err := s.device.CreateRenderTexture(s.name+" XYZ copy", s.xyzTex.Width(), s.xyzTex.Height(), FormatARGBFloat)
		if err != nil {
			return fmt.Errorf("%s: allocate frozen XYZ texture: %w", s.name, err)
		}
		s.xyzCopy = tex
	}
	if s.colorTex != nil && s.colorCopy == nil {
		tex, err := s.device.CreateRenderTexture(s.name+" color copy", s.colorTex.Width(), s.colorTex.Height(), FormatARGB32)
		if err != nil {
			return fmt.Errorf("%s: allocate frozen color texture: %w", s.name, err)
		}
		s.colorCopy = tex
	}
	return nil
}

func (s *Source) bindTextures(xyz, color Texture) {
	if s.material == nil {
		return
	}
	s.material.SetTexture(s.props.xyzTex, xyz)
	s.material.SetTexture(s.props.colorTex, color)
}

// ShouldRenderForCamera reports whether cam may draw this source.
func (s *Source) ShouldRenderForCamera(cam *Camera) bool {
	if !s.display {
		return false
	}
	if s.excluded != nil && SameCamera(cam, s.excluded) {
		return false
	}
	return true
}

func (s *Source) Readiness() Readiness {
	switch {
	case s.material == nil:
		return ReadinessNoMaterial
	case s.pointCount <= 0:
		return ReadinessNoPoints
	default:
		return ReadinessReady
	}
}

func (s *Source) Material() Material { return s.material }
func (s *Source) PointCount() int    { return s.pointCount }
func (s *Source) ID() uuid.UUID      { return s.id }
func (s *Source) Name() string       { return s.name }
func (s *Source) Active() bool       { return s.active }
func (s *Source) Display() bool      { return s.display }
func (s *Source) Live() bool         { return s.live }
func (s *Source) LastFrame() uint64  { return s.lastFrame }

// Frozen reports whether the frozen copies have been allocated.
func (s *Source) Frozen() bool { return s.xyzCopy != nil || s.colorCopy != nil }

func (s *Source) ExcludedCamera() *Camera { return s.excluded }
func (s *Source) Transform() Transform    { return s.transform }
func (s *Source) SDK() CameraSDK          { return s.sdk }

func (s *Source) SetDisplay(display bool)       { s.display = display }
func (s *Source) SetLive(live bool)             { s.live = live }
func (s *Source) SetExcludedCamera(cam *Camera) { s.excluded = cam }
func (s *Source) SetTransform(t Transform)      { s.transform = t }
func (s *Source) SetSDK(sdk CameraSDK)          { s.sdk = sdk }

// SetMaterial replaces the material; bindings are refreshed on the next Update.
func (s *Source) SetMaterial(m Material) {
	s.material = m
	s.props = propertyIDs{}
	s.resolveProperties()
}

// WorldMatrix is the matrix uploaded as _Position.
func (s *Source) WorldMatrix() mgl32.Mat4 { return s.transform.ObjectToWorld() }
