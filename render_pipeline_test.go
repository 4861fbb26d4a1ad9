package depthcloud

import (
	"errors"
	"testing"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPass struct {
	name  string
	event cloud.PassEvent
	log   *[]string
	draws int
}

func (p *recordingPass) Event() cloud.PassEvent { return p.event }

func (p *recordingPass) Execute(data cloud.RenderingData) int {
	*p.log = append(*p.log, data.Camera.Name+":"+p.name)
	return p.draws
}

type failingPool struct {
	*soft.CommandPool
	fail string
}

func (p failingPool) Get(cam *cloud.Camera) (cloud.CommandBuffer, error) {
	if cam.Name == p.fail {
		return nil, errors.New("device lost")
	}
	return p.CommandPool.Get(cam)
}

func TestRenderPipeline_OrdersPassesPerCamera(t *testing.T) {
	var log []string
	pool := soft.NewCommandPool()
	a, b := cloud.NewCamera("a"), cloud.NewCamera("b")
	p := NewRenderPipeline(pool, a, b)

	p.EnqueuePass(&recordingPass{name: "late", event: cloud.AfterRendering, log: &log, draws: 1})
	p.EnqueuePass(&recordingPass{name: "early", event: cloud.BeforeRenderingOpaques, log: &log, draws: 2})
	p.EnqueuePass(&recordingPass{name: "opaque", event: cloud.AfterRenderingOpaques, log: &log})
	p.EnqueuePass(nil)

	stats, err := p.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a:early", "a:opaque", "a:late",
		"b:early", "b:opaque", "b:late",
	}, log)
	assert.Equal(t, RenderStats{Cameras: 2, Passes: 3, Draws: 6}, stats)
	assert.Len(t, pool.Submitted, 2)

	log = nil
	stats, err = p.Render()
	require.NoError(t, err)
	assert.Empty(t, log, "the queue is cleared after each frame")
	assert.Equal(t, 2, stats.Cameras)
}

func TestRenderPipeline_StablePassOrder(t *testing.T) {
	var log []string
	p := NewRenderPipeline(soft.NewCommandPool(), cloud.NewCamera("main"))
	p.EnqueuePass(&recordingPass{name: "first", event: cloud.AfterRenderingOpaques, log: &log})
	p.EnqueuePass(&recordingPass{name: "second", event: cloud.AfterRenderingOpaques, log: &log})

	_, err := p.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"main:first", "main:second"}, log)
}

func TestRenderPipeline_CameraFailureSkipsCamera(t *testing.T) {
	var log []string
	pool := failingPool{CommandPool: soft.NewCommandPool(), fail: "broken"}
	p := NewRenderPipeline(pool, cloud.NewCamera("broken"), cloud.NewCamera("ok"))
	p.EnqueuePass(&recordingPass{name: "pc", log: &log, draws: 1})

	stats, err := p.Render()
	assert.ErrorContains(t, err, "device lost")
	assert.Equal(t, []string{"ok:pc"}, log)
	assert.Equal(t, 1, stats.Cameras)
	assert.Equal(t, stats, p.Stats())
}

func TestRenderPipeline_NoPool(t *testing.T) {
	var log []string
	p := NewRenderPipeline(nil, cloud.NewCamera("main"))

	_, err := p.Render()
	assert.NoError(t, err, "nothing to render")

	p.EnqueuePass(&recordingPass{name: "pc", log: &log})
	_, err = p.Render()
	assert.ErrorIs(t, err, ErrNoCommandPool)
	assert.Empty(t, log)
}

func TestRenderPipeline_Cameras(t *testing.T) {
	main := cloud.NewCamera("main")
	p := NewRenderPipeline(nil)
	p.AddCamera(main, nil, main)
	left := main.EyeView(cloud.EyeLeft, main.View)
	p.AddCamera(left)

	assert.Len(t, p.Cameras(), 2)
	assert.Same(t, main, p.Camera("main"))
	assert.Nil(t, p.Camera("missing"))

	p.RemoveCamera(main)
	assert.Equal(t, []*cloud.Camera{left}, p.Cameras())
}
