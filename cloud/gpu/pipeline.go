package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud/cloud"
)

const (
	cameraUniformSize = 80 // mat4 view_proj + vec4 viewport
	cloudUniformSize  = 80 // mat4 position + f32 scale + u32 width + u32 height + pad

	// Point-list primitives are one pixel wide, so points are drawn as two
	// triangles each.
	spriteCorners = 6
)

type pipeline struct {
	name         string
	render       *wgpu.RenderPipeline
	cameraLayout *wgpu.BindGroupLayout
	cloudLayout  *wgpu.BindGroupLayout
}

func (d *Device) pipeline(shaderName string) (*pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pipelines[shaderName]; ok {
		return p, nil
	}
	code, ok := d.shaders[shaderName]
	if !ok {
		return nil, fmt.Errorf("gpu: %q: %w", shaderName, cloud.ErrShaderNotFound)
	}
	p, err := d.createPipeline(shaderName, code)
	if err != nil {
		return nil, err
	}
	d.pipelines[shaderName] = p
	return p, nil
}

func (d *Device) createPipeline(name, code string) (*pipeline, error) {
	shaderModule, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: shader %q: %w", name, err)
	}
	defer shaderModule.Release()

	// Group 0: per-camera uniforms
	cameraLayout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "PointCloudCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	// Group 1: per-source uniforms and the XYZ/color textures.
	// RGBA32Float is not filterable, so both textures are read with textureLoad.
	cloudLayout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "PointCloudSourceBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cloudUniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageVertex,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name + " layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{cameraLayout, cloudLayout},
	})
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	render, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  name,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    d.targetFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: pipeline %q: %w", name, err)
	}

	return &pipeline{
		name:         name,
		render:       render,
		cameraLayout: cameraLayout,
		cloudLayout:  cloudLayout,
	}, nil
}
