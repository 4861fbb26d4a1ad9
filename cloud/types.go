package cloud

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// Shader property names shared with the point cloud shader.
const (
	PropPosition            = "_Position"
	PropColorTex            = "_ColorTex"
	PropXYZTex              = "_XYZTex"
	PropScaleSizeMultiplier = "_ScaleSizeMultiplier"
)

// DefaultShaderName is looked up when a source has no material assigned.
const DefaultShaderName = "ZED/ZED PointCloud URP"

var (
	ErrShaderNotFound = errors.New("cloud: shader not found")
	ErrTextureFormat  = errors.New("cloud: unsupported texture format")
)

type TextureFormat int

const (
	FormatARGBFloat TextureFormat = iota // four float32 channels, XYZ samples
	FormatARGB32                         // four uint8 channels, color
)

func (f TextureFormat) String() string {
	switch f {
	case FormatARGBFloat:
		return "ARGBFloat"
	case FormatARGB32:
		return "ARGB32"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the texel size of the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case FormatARGBFloat:
		return 16
	case FormatARGB32:
		return 4
	default:
		return 0
	}
}

type Texture interface {
	Width() int
	Height() int
	Format() TextureFormat
}

// RenderTexture is a texture owned by the caller that created it.
type RenderTexture interface {
	Texture
	Release()
}

// StreamTexture is a texture a camera SDK adapter uploads frames into.
type StreamTexture interface {
	Texture
	Write(pixels []byte)
}

// StreamDevice allocates the textures camera SDK adapters stream into.
type StreamDevice interface {
	CreateStreamTexture(label string, width, height int, format TextureFormat) (StreamTexture, error)
}

// PropertyID is a resolved handle for a named material property.
type PropertyID int

type Material interface {
	PropertyID(name string) PropertyID
	SetTexture(id PropertyID, tex Texture)
	SetMatrix(id PropertyID, m mgl32.Mat4)
	SetFloat(id PropertyID, v float32)
}

// Device is the GPU resource collaborator used by sources.
// Blit is submitted without waiting for completion.
type Device interface {
	CreateRenderTexture(label string, width, height int, format TextureFormat) (RenderTexture, error)
	Blit(src Texture, dst RenderTexture)
	NewMaterial(shaderName string) (Material, error)
}

// CameraSDK is the depth camera binding a source pulls frames from.
// The returned textures are refreshed in place by the SDK every frame.
type CameraSDK interface {
	IsReady() bool
	ImageWidth() int
	ImageHeight() int
	PositionTexture() Texture
	ColorTexture() Texture
}

type Topology int

const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyTriangles
)

// CommandBuffer receives the commands a pass records for one camera.
type CommandBuffer interface {
	BeginSample(name string)
	EndSample(name string)
	DrawProcedural(matrix mgl32.Mat4, mat Material, shaderPass int, topology Topology, vertexCount, instanceCount int)
}

// Logger is the subset of the application logger used by this package.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// CommandPool hands out a command buffer per camera and executes it on Release.
type CommandPool interface {
	Get(cam *Camera) (CommandBuffer, error)
	Release(cmd CommandBuffer) error
}
