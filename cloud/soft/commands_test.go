package soft_test

import (
	"testing"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPool_ReleaseAndRecycle(t *testing.T) {
	pool := soft.NewCommandPool()

	cmd, err := pool.Get(cloud.NewCamera("main"))
	require.NoError(t, err)
	buf := cmd.(*soft.CommandBuffer)
	assert.Equal(t, "main", buf.Name)

	cmd.BeginSample("pass")
	cmd.DrawProcedural(mgl32.Ident4(), nil, 0, cloud.TopologyPoints, 1, 12)
	cmd.EndSample("pass")
	require.NoError(t, pool.Release(cmd))
	require.Len(t, pool.Submitted, 1)
	assert.Equal(t, 12, pool.Submitted[0].Points())

	pool.Recycle()
	assert.Empty(t, pool.Submitted)

	again, err := pool.Get(nil)
	require.NoError(t, err)
	reused := again.(*soft.CommandBuffer)
	assert.Same(t, buf, reused)
	assert.Equal(t, "camera", reused.Name)
	assert.Empty(t, reused.Draws)
	assert.Empty(t, reused.Samples)
}

func TestCommandPool_RejectsUnbalancedBuffer(t *testing.T) {
	pool := soft.NewCommandPool()
	cmd, err := pool.Get(nil)
	require.NoError(t, err)

	cmd.BeginSample("open")
	assert.Error(t, pool.Release(cmd))
	assert.Empty(t, pool.Submitted)
}

type foreignBuffer struct{}

func (foreignBuffer) BeginSample(string) {}
func (foreignBuffer) EndSample(string)   {}
func (foreignBuffer) DrawProcedural(mgl32.Mat4, cloud.Material, int, cloud.Topology, int, int) {
}

func TestCommandPool_RejectsForeignBuffer(t *testing.T) {
	pool := soft.NewCommandPool()
	assert.Error(t, pool.Release(foreignBuffer{}))
}
