// Package gpu implements the point cloud contracts on WebGPU.
package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/shaders"
)

const DepthFormat = wgpu.TextureFormatDepth32Float

func textureFormat(f cloud.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case cloud.FormatARGBFloat:
		return wgpu.TextureFormatRGBA32Float, nil
	case cloud.FormatARGB32:
		return wgpu.TextureFormatRGBA8Unorm, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("gpu: %v: %w", f, cloud.ErrTextureFormat)
	}
}

type Texture struct {
	device  *Device
	label   string
	width   int
	height  int
	format  cloud.TextureFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var (
	_ cloud.RenderTexture = (*Texture)(nil)
	_ cloud.StreamTexture = (*Texture)(nil)
)

func (t *Texture) Width() int                  { return t.width }
func (t *Texture) Height() int                 { return t.height }
func (t *Texture) Format() cloud.TextureFormat { return t.format }
func (t *Texture) View() *wgpu.TextureView     { return t.view }

func (t *Texture) extent() wgpu.Extent3D {
	return wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1}
}

// Write uploads a full frame of texels.
func (t *Texture) Write(pixels []byte) {
	if t.texture == nil || len(pixels) == 0 {
		return
	}
	size := t.extent()
	t.device.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Aspect:   wgpu.TextureAspectAll,
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.width * t.format.BytesPerPixel()),
			RowsPerImage: uint32(t.height),
		},
		&size,
	)
}

func (t *Texture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// Device wraps a WebGPU device and the point cloud pipelines built on it.
type Device struct {
	device       *wgpu.Device
	queue        *wgpu.Queue
	targetFormat wgpu.TextureFormat
	logger       cloud.Logger

	mu        sync.Mutex
	shaders   map[string]string
	pipelines map[string]*pipeline
}

var (
	_ cloud.Device       = (*Device)(nil)
	_ cloud.StreamDevice = (*Device)(nil)
)

// NewDevice wraps device. targetFormat is the color format passes render into.
func NewDevice(device *wgpu.Device, targetFormat wgpu.TextureFormat, logger cloud.Logger) *Device {
	if logger == nil {
		logger = nopLogger{}
	}
	d := &Device{
		device:       device,
		queue:        device.GetQueue(),
		targetFormat: targetFormat,
		logger:       logger,
		shaders:      map[string]string{cloud.DefaultShaderName: shaders.PointCloudWGSL},
		pipelines:    make(map[string]*pipeline),
	}
	return d
}

func (d *Device) Raw() *wgpu.Device { return d.device }
func (d *Device) Queue() *wgpu.Queue { return d.queue }

// RegisterShader makes a WGSL point cloud shader available to NewMaterial.
// The shader must follow the bind group layout of the built-in one.
func (d *Device) RegisterShader(name, wgsl string) {
	d.mu.Lock()
	d.shaders[name] = wgsl
	delete(d.pipelines, name)
	d.mu.Unlock()
}

func (d *Device) createTexture(label string, width, height int, format cloud.TextureFormat, usage wgpu.TextureUsage) (*Texture, error) {
	wf, err := textureFormat(format)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: texture %q: invalid size %dx%d", label, width, height)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wf,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("gpu: create view %q: %w", label, err)
	}
	return &Texture{
		device:  d,
		label:   label,
		width:   width,
		height:  height,
		format:  format,
		texture: tex,
		view:    view,
	}, nil
}

func (d *Device) CreateStreamTexture(label string, width, height int, format cloud.TextureFormat) (cloud.StreamTexture, error) {
	tex, err := d.createTexture(label, width, height, format,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (d *Device) CreateRenderTexture(label string, width, height int, format cloud.TextureFormat) (cloud.RenderTexture, error) {
	tex, err := d.createTexture(label, width, height, format,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

// Blit copies src into dst on the GPU without waiting for completion.
// Both textures must come from this backend and share a format.
func (d *Device) Blit(src cloud.Texture, dst cloud.RenderTexture) {
	s, ok := src.(*Texture)
	if !ok || s == nil || s.texture == nil {
		return
	}
	t, ok := dst.(*Texture)
	if !ok || t == nil || t.texture == nil {
		return
	}
	if s.format != t.format {
		d.logger.Warnf("gpu: blit %q -> %q: format mismatch %v/%v", s.label, t.label, s.format, t.format)
		return
	}

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "PointCloud Blit"})
	if err != nil {
		d.logger.Warnf("gpu: blit encoder: %v", err)
		return
	}
	defer encoder.Release()

	size := wgpu.Extent3D{
		Width:              uint32(min(s.width, t.width)),
		Height:             uint32(min(s.height, t.height)),
		DepthOrArrayLayers: 1,
	}
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: t.texture, Aspect: wgpu.TextureAspectAll},
		&size,
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		d.logger.Warnf("gpu: blit finish: %v", err)
		return
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
}

func (d *Device) NewMaterial(shaderName string) (cloud.Material, error) {
	p, err := d.pipeline(shaderName)
	if err != nil {
		return nil, err
	}
	m, err := newMaterial(d, p)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateDepthTarget allocates a depth attachment for a render target of the given size.
func (d *Device) CreateDepthTarget(width, height int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PointCloud Depth",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}
