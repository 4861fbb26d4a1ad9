package soft

import (
	"fmt"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

type DrawCall struct {
	Matrix        mgl32.Mat4
	Material      cloud.Material
	ShaderPass    int
	Topology      cloud.Topology
	VertexCount   int
	InstanceCount int
}

// CommandBuffer records commands instead of executing them.
type CommandBuffer struct {
	Name    string
	Draws   []DrawCall
	Samples []string
	depth   int
}

var _ cloud.CommandBuffer = (*CommandBuffer)(nil)

func NewCommandBuffer(name string) *CommandBuffer {
	return &CommandBuffer{Name: name}
}

func (c *CommandBuffer) BeginSample(name string) {
	c.Samples = append(c.Samples, "begin:"+name)
	c.depth++
}

func (c *CommandBuffer) EndSample(name string) {
	c.Samples = append(c.Samples, "end:"+name)
	c.depth--
}

func (c *CommandBuffer) DrawProcedural(matrix mgl32.Mat4, mat cloud.Material, shaderPass int, topology cloud.Topology, vertexCount, instanceCount int) {
	c.Draws = append(c.Draws, DrawCall{
		Matrix:        matrix,
		Material:      mat,
		ShaderPass:    shaderPass,
		Topology:      topology,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})
}

// Balanced reports whether every BeginSample has a matching EndSample.
func (c *CommandBuffer) Balanced() bool { return c.depth == 0 }

// Points is the total number of point instances drawn.
func (c *CommandBuffer) Points() int {
	n := 0
	for _, d := range c.Draws {
		n += d.InstanceCount
	}
	return n
}

func (c *CommandBuffer) Reset() {
	c.Draws = c.Draws[:0]
	c.Samples = c.Samples[:0]
	c.depth = 0
}

// CommandPool keeps every released buffer in Submitted, in release order.
type CommandPool struct {
	Submitted []*CommandBuffer
	free      []*CommandBuffer
}

var _ cloud.CommandPool = (*CommandPool)(nil)

func NewCommandPool() *CommandPool {
	return &CommandPool{}
}

func (p *CommandPool) Get(cam *cloud.Camera) (cloud.CommandBuffer, error) {
	name := "camera"
	if cam != nil {
		name = cam.Name
	}
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		c.Reset()
		c.Name = name
		return c, nil
	}
	return NewCommandBuffer(name), nil
}

func (p *CommandPool) Release(cmd cloud.CommandBuffer) error {
	c, ok := cmd.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("soft: release %T: not a soft command buffer", cmd)
	}
	if !c.Balanced() {
		return fmt.Errorf("soft: command buffer %q: unbalanced samples", c.Name)
	}
	p.Submitted = append(p.Submitted, c)
	return nil
}

// Recycle returns submitted buffers to the free list and clears Submitted.
func (p *CommandPool) Recycle() {
	p.free = append(p.free, p.Submitted...)
	p.Submitted = nil
}
