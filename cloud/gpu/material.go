package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	propPosition cloud.PropertyID = iota
	propColorTex
	propXYZTex
	propScaleSize
)

// Material holds one source's uniforms and texture bindings for a point cloud pipeline.
type Material struct {
	device   *Device
	pipeline *pipeline

	ids map[string]cloud.PropertyID

	params      cloudParams
	paramsDirty bool

	xyz       *Texture
	color     *Texture
	bindDirty bool

	uniform   *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

var _ cloud.Material = (*Material)(nil)

func newMaterial(d *Device, p *pipeline) (*Material, error) {
	uniform, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PointCloudUB",
		Size:  cloudUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: material uniform: %w", err)
	}
	return &Material{
		device:   d,
		pipeline: p,
		ids: map[string]cloud.PropertyID{
			cloud.PropPosition:            propPosition,
			cloud.PropColorTex:            propColorTex,
			cloud.PropXYZTex:              propXYZTex,
			cloud.PropScaleSizeMultiplier: propScaleSize,
		},
		params:      cloudParams{position: mgl32.Ident4(), scaleSize: 1},
		paramsDirty: true,
		uniform:     uniform,
	}, nil
}

// PropertyID resolves a property name. Names the shader does not declare get
// their own IDs and are ignored by the setters.
func (m *Material) PropertyID(name string) cloud.PropertyID {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := cloud.PropertyID(len(m.ids))
	m.ids[name] = id
	return id
}

func (m *Material) SetTexture(id cloud.PropertyID, tex cloud.Texture) {
	t, _ := tex.(*Texture)
	switch id {
	case propXYZTex:
		if m.xyz != t {
			m.xyz = t
			m.bindDirty = true
		}
	case propColorTex:
		if m.color != t {
			m.color = t
			m.bindDirty = true
		}
	}
}

func (m *Material) SetMatrix(id cloud.PropertyID, v mgl32.Mat4) {
	if id == propPosition && m.params.position != v {
		m.params.position = v
		m.paramsDirty = true
	}
}

func (m *Material) SetFloat(id cloud.PropertyID, v float32) {
	if id == propScaleSize && m.params.scaleSize != v {
		m.params.scaleSize = v
		m.paramsDirty = true
	}
}

// prepare uploads pending uniforms and rebuilds the bind group after texture
// changes. It reports false while either texture is unbound.
func (m *Material) prepare() bool {
	if m.xyz == nil || m.color == nil || m.xyz.view == nil || m.color.view == nil {
		return false
	}

	w, h := uint32(m.xyz.width), uint32(m.xyz.height)
	if m.params.width != w || m.params.height != h {
		m.params.width, m.params.height = w, h
		m.paramsDirty = true
	}
	if m.paramsDirty {
		if err := m.device.queue.WriteBuffer(m.uniform, 0, m.params.encode()); err != nil {
			m.device.logger.Warnf("gpu: point cloud uniforms: %v", err)
			return false
		}
		m.paramsDirty = false
	}

	if m.bindDirty || m.bindGroup == nil {
		bg, err := m.device.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "PointCloudSourceBG",
			Layout: m.pipeline.cloudLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: m.uniform, Size: cloudUniformSize},
				{Binding: 1, TextureView: m.xyz.view},
				{Binding: 2, TextureView: m.color.view},
			},
		})
		if err != nil {
			m.device.logger.Warnf("gpu: point cloud bind group: %v", err)
			return false
		}
		if m.bindGroup != nil {
			m.bindGroup.Release()
		}
		m.bindGroup = bg
		m.bindDirty = false
	}
	return true
}

func (m *Material) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.uniform != nil {
		m.uniform.Release()
		m.uniform = nil
	}
}
