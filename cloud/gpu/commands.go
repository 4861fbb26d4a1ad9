package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

// Target is the attachment set command buffers render into.
type Target struct {
	Color      *wgpu.TextureView
	Depth      *wgpu.TextureView
	Width      int
	Height     int
	ClearColor wgpu.Color
}

// CommandBuffer records one camera's draws into a render pass.
type CommandBuffer struct {
	pool    *CommandPool
	camera  *cloud.Camera
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder

	cameraBuf    *wgpu.Buffer
	cameraGroups map[*pipeline]*wgpu.BindGroup
	bound        *pipeline

	draws int
	err   error
}

var _ cloud.CommandBuffer = (*CommandBuffer)(nil)

func (c *CommandBuffer) BeginSample(name string) {
	if c.pass != nil {
		c.pass.PushDebugGroup(name)
	}
}

func (c *CommandBuffer) EndSample(string) {
	if c.pass != nil {
		c.pass.PopDebugGroup()
	}
}

// DrawProcedural draws instanceCount points with a material from this device.
// The matrix is ignored: positions come from the material's _Position.
// Each point is expanded to a screen-facing quad sized by _ScaleSizeMultiplier.
func (c *CommandBuffer) DrawProcedural(_ mgl32.Mat4, mat cloud.Material, _ int, topology cloud.Topology, vertexCount, instanceCount int) {
	if c.pass == nil || instanceCount <= 0 {
		return
	}
	m, ok := mat.(*Material)
	if !ok || m == nil {
		c.pool.device.logger.Warnf("gpu: draw with foreign material %T", mat)
		return
	}
	if topology != cloud.TopologyPoints {
		c.pool.device.logger.Warnf("gpu: unsupported topology %d", topology)
		return
	}
	if !m.prepare() {
		return
	}

	group, err := c.cameraGroup(m.pipeline)
	if err != nil {
		c.err = err
		return
	}
	if c.bound != m.pipeline {
		c.pass.SetPipeline(m.pipeline.render)
		c.pass.SetBindGroup(0, group, nil)
		c.bound = m.pipeline
	}
	c.pass.SetBindGroup(1, m.bindGroup, nil)
	c.pass.Draw(spriteVertices(vertexCount), uint32(instanceCount), 0, 0)
	c.draws++
}

// spriteVertices is the triangle-list vertex count for vertexCount points.
func spriteVertices(vertexCount int) uint32 {
	if vertexCount <= 0 {
		return 0
	}
	return uint32(vertexCount * spriteCorners)
}

func (c *CommandBuffer) cameraGroup(p *pipeline) (*wgpu.BindGroup, error) {
	if g, ok := c.cameraGroups[p]; ok {
		return g, nil
	}
	g, err := c.pool.device.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "PointCloudCameraBG",
		Layout: p.cameraLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: c.cameraBuf, Size: cameraUniformSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: camera bind group: %w", err)
	}
	c.cameraGroups[p] = g
	return g, nil
}

// Draws is the number of draw calls recorded since Get.
func (c *CommandBuffer) Draws() int { return c.draws }

func (c *CommandBuffer) begin(cam *cloud.Camera, target Target, load wgpu.LoadOp) error {
	d := c.pool.device
	c.camera = cam
	c.draws = 0
	c.bound = nil
	c.err = nil

	if err := d.queue.WriteBuffer(c.cameraBuf, 0, encodeCamera(cam)); err != nil {
		return fmt.Errorf("gpu: camera uniform: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "PointCloud Commands"})
	if err != nil {
		return fmt.Errorf("gpu: command encoder: %w", err)
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target.Color,
				LoadOp:     load,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: target.ClearColor,
			},
		},
	}
	if target.Depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            target.Depth,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}
	c.encoder = encoder
	c.pass = encoder.BeginRenderPass(desc)

	if cam != nil && cam.Viewport.Width > 0 && cam.Viewport.Height > 0 {
		vp := cam.Viewport
		c.pass.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
	}
	return nil
}

func (c *CommandBuffer) submit() error {
	if c.pass == nil {
		return nil
	}
	defer c.releaseFrame()

	if err := c.pass.End(); err != nil {
		return fmt.Errorf("gpu: end pass: %w", err)
	}
	cmd, err := c.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: finish commands: %w", err)
	}
	defer cmd.Release()
	c.pool.device.queue.Submit(cmd)
	return c.err
}

func (c *CommandBuffer) releaseFrame() {
	if c.pass != nil {
		c.pass.Release()
		c.pass = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
}

func (c *CommandBuffer) release() {
	c.releaseFrame()
	for p, g := range c.cameraGroups {
		g.Release()
		delete(c.cameraGroups, p)
	}
	if c.cameraBuf != nil {
		c.cameraBuf.Release()
		c.cameraBuf = nil
	}
}

// CommandPool hands out command buffers rendering into the current target.
// The first buffer of a frame clears the target; later ones load it.
type CommandPool struct {
	device  *Device
	target  Target
	cleared bool
	free    []*CommandBuffer
	all     []*CommandBuffer
}

var _ cloud.CommandPool = (*CommandPool)(nil)

func NewCommandPool(device *Device) *CommandPool {
	return &CommandPool{device: device}
}

// BeginFrame sets the attachments for the buffers handed out until the next call.
func (p *CommandPool) BeginFrame(target Target) {
	p.target = target
	p.cleared = false
}

func (p *CommandPool) Get(cam *cloud.Camera) (cloud.CommandBuffer, error) {
	if p.target.Color == nil {
		return nil, fmt.Errorf("gpu: command pool has no target")
	}
	c, err := p.take()
	if err != nil {
		return nil, err
	}
	load := wgpu.LoadOpLoad
	if !p.cleared {
		load = wgpu.LoadOpClear
		p.cleared = true
	}
	if err := c.begin(cam, p.target, load); err != nil {
		p.free = append(p.free, c)
		return nil, err
	}
	return c, nil
}

func (p *CommandPool) take() (*CommandBuffer, error) {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c, nil
	}
	buf, err := p.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PointCloudCameraUB",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: camera uniform buffer: %w", err)
	}
	c := &CommandBuffer{
		pool:         p,
		cameraBuf:    buf,
		cameraGroups: make(map[*pipeline]*wgpu.BindGroup),
	}
	p.all = append(p.all, c)
	return c, nil
}

// Release submits cmd and returns it to the pool.
func (p *CommandPool) Release(cmd cloud.CommandBuffer) error {
	c, ok := cmd.(*CommandBuffer)
	if !ok || c.pool != p {
		return fmt.Errorf("gpu: release %T: not from this pool", cmd)
	}
	err := c.submit()
	p.free = append(p.free, c)
	return err
}

// Destroy frees every buffer the pool created.
func (p *CommandPool) Destroy() {
	for _, c := range p.all {
		c.release()
	}
	p.all = nil
	p.free = nil
}
