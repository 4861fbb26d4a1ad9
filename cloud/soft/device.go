// Package soft implements the point cloud GPU contracts in host memory.
// It backs headless runs and tests.
package soft

import (
	"fmt"
	"sync"

	"github.com/gekko3d/depthcloud/cloud"
)

type Texture struct {
	label    string
	width    int
	height   int
	format   cloud.TextureFormat
	pixels   []byte
	released bool
}

var _ cloud.RenderTexture = (*Texture)(nil)

func NewTexture(label string, width, height int, format cloud.TextureFormat) (*Texture, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("soft: texture %q: %w", label, cloud.ErrTextureFormat)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: texture %q: invalid size %dx%d", label, width, height)
	}
	return &Texture{
		label:  label,
		width:  width,
		height: height,
		format: format,
		pixels: make([]byte, width*height*bpp),
	}, nil
}

func (t *Texture) Label() string               { return t.label }
func (t *Texture) Width() int                  { return t.width }
func (t *Texture) Height() int                 { return t.height }
func (t *Texture) Format() cloud.TextureFormat { return t.format }
func (t *Texture) Released() bool              { return t.released }

// Pixels exposes the texel storage. Callers must not retain it across writes.
func (t *Texture) Pixels() []byte { return t.pixels }

// Write replaces the texel contents; data shorter than the texture leaves the tail untouched.
func (t *Texture) Write(data []byte) {
	copy(t.pixels, data)
}

func (t *Texture) Release() {
	t.released = true
	t.pixels = nil
}

// Device allocates textures and materials in memory.
type Device struct {
	mu      sync.Mutex
	shaders map[string]bool

	Allocations int
	Blits       int
}

var _ cloud.Device = (*Device)(nil)

// NewDevice creates a device that knows the default point cloud shader.
func NewDevice() *Device {
	return &Device{
		shaders: map[string]bool{cloud.DefaultShaderName: true},
	}
}

// NewBareDevice creates a device without any shaders registered.
func NewBareDevice() *Device {
	return &Device{shaders: make(map[string]bool)}
}

func (d *Device) RegisterShader(name string) {
	d.mu.Lock()
	d.shaders[name] = true
	d.mu.Unlock()
}

var _ cloud.StreamDevice = (*Device)(nil)

// CreateTexture allocates a texture an SDK adapter can write frames into.
func (d *Device) CreateTexture(label string, width, height int, format cloud.TextureFormat) (*Texture, error) {
	tex, err := NewTexture(label, width, height, format)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.Allocations++
	d.mu.Unlock()
	return tex, nil
}

func (d *Device) CreateStreamTexture(label string, width, height int, format cloud.TextureFormat) (cloud.StreamTexture, error) {
	tex, err := d.CreateTexture(label, width, height, format)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (d *Device) CreateRenderTexture(label string, width, height int, format cloud.TextureFormat) (cloud.RenderTexture, error) {
	tex, err := d.CreateTexture(label, width, height, format)
	if err != nil {
		return nil, err
	}
	return tex, nil
}

// Blit copies src into dst. Textures from another backend are ignored.
func (d *Device) Blit(src cloud.Texture, dst cloud.RenderTexture) {
	s, ok := src.(*Texture)
	if !ok || s == nil {
		return
	}
	t, ok := dst.(*Texture)
	if !ok || t == nil || t.released {
		return
	}
	copy(t.pixels, s.pixels)
	d.mu.Lock()
	d.Blits++
	d.mu.Unlock()
}

func (d *Device) NewMaterial(shaderName string) (cloud.Material, error) {
	d.mu.Lock()
	known := d.shaders[shaderName]
	d.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("soft: %q: %w", shaderName, cloud.ErrShaderNotFound)
	}
	return NewMaterial(shaderName), nil
}
