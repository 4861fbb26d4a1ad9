package cloud_test

import (
	"errors"
	"testing"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_ShouldRenderForCamera(t *testing.T) {
	camA := cloud.NewCamera("A")
	camB := cloud.NewCamera("B")

	tests := []struct {
		name     string
		display  bool
		excluded *cloud.Camera
		cam      *cloud.Camera
		want     bool
	}{
		{"hidden source, other camera", false, camA, camB, false},
		{"hidden source, excluded camera", false, camA, camA, false},
		{"hidden source, no exclusion", false, nil, camB, false},
		{"visible, excluded camera", true, camA, camA, false},
		{"visible, other camera", true, camA, camB, true},
		{"visible, no exclusion", true, nil, camA, true},
		{"visible, excluded camera right eye", true, camA, camA.EyeView(cloud.EyeRight, mgl32.Ident4()), false},
		{"visible, nil camera", true, camA, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := cloud.NewSource(nil, cloud.WithDisplay(tt.display), cloud.WithExcludedCamera(tt.excluded))
			assert.Equal(t, tt.want, src.ShouldRenderForCamera(tt.cam))
		})
	}
}

func TestSource_UpdateIdleWithoutSDK(t *testing.T) {
	dev := soft.NewDevice()
	reg := cloud.NewRegistry()
	src := cloud.NewSource(reg, cloud.WithDevice(dev))
	src.Activate()

	require.NoError(t, src.Update(cloud.Frame{Index: 1}))
	assert.Equal(t, 0, src.PointCount())
	assert.Equal(t, cloud.ReadinessNoPoints, src.Readiness())
}

func TestSource_UpdateIdleWhileNotReady(t *testing.T) {
	dev := soft.NewDevice()
	sdk := newFakeSDK(t, dev, 4, 3)
	sdk.ready = false
	src := cloud.NewSource(cloud.NewRegistry(), cloud.WithDevice(dev), cloud.WithSDK(sdk))
	src.Activate()

	require.NoError(t, src.Update(cloud.Frame{Index: 1}))
	assert.Equal(t, 0, src.PointCount())

	sdk.ready = true
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))
	assert.Equal(t, 12, src.PointCount())
	assert.Equal(t, uint64(2), src.LastFrame())
}

func TestSource_FirstFrameBindsLiveTextures(t *testing.T) {
	dev := soft.NewDevice()
	src, sdk := newReadySource(t, cloud.NewRegistry(), dev)

	assert.Equal(t, 12, src.PointCount())
	assert.Equal(t, cloud.ReadinessReady, src.Readiness())

	mat := src.Material().(*soft.Material)
	assert.Equal(t, cloud.DefaultShaderName, mat.Shader())
	assert.Same(t, sdk.xyz, mat.Texture(cloud.PropXYZTex))
	assert.Same(t, sdk.color, mat.Texture(cloud.PropColorTex))
}

func TestSource_PointCountFixedAfterFirstFrame(t *testing.T) {
	dev := soft.NewDevice()
	src, sdk := newReadySource(t, cloud.NewRegistry(), dev)

	sdk.w, sdk.h = 100, 100
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))
	assert.Equal(t, 12, src.PointCount())
}

func TestSource_UniformScaleMultiplier(t *testing.T) {
	for _, s := range []float32{0.25, 1, 2.5, 10} {
		tr := cloud.NewTransform()
		tr.Scale = mgl32.Vec3{s, s, s}
		assert.InDelta(t, s, tr.PointScale(), 1e-5)
	}
}

func TestSource_UpdateWritesInstanceParameters(t *testing.T) {
	dev := soft.NewDevice()
	tr := cloud.NewTransform()
	tr.Position = mgl32.Vec3{1, 2, 3}
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	tr.Scale = mgl32.Vec3{2, 2, 2}

	src, _ := newReadySource(t, cloud.NewRegistry(), dev, cloud.WithTransform(tr))
	mat := src.Material().(*soft.Material)

	m, ok := mat.Matrix(cloud.PropPosition)
	require.True(t, ok)
	assert.True(t, m.ApproxEqualThreshold(tr.ObjectToWorld(), 1e-6))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, m.Col(3).Vec3())

	scale, ok := mat.Float(cloud.PropScaleSizeMultiplier)
	require.True(t, ok)
	assert.InDelta(t, 2, scale, 1e-5)

	tr.Scale = mgl32.Vec3{1, 2, 2}
	src.SetTransform(tr)
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))
	scale, _ = mat.Float(cloud.PropScaleSizeMultiplier)
	assert.InDelta(t, 3/1.7320508, scale, 1e-5)
}

func TestSource_FrozenSnapshotIsStable(t *testing.T) {
	dev := soft.NewDevice()
	src, sdk := newReadySource(t, cloud.NewRegistry(), dev)
	mat := src.Material().(*soft.Material)

	sdk.fill(1)
	src.SetLive(false)
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))

	xyz, ok := mat.Texture(cloud.PropXYZTex).(*soft.Texture)
	require.True(t, ok)
	color, ok := mat.Texture(cloud.PropColorTex).(*soft.Texture)
	require.True(t, ok)
	assert.NotSame(t, sdk.xyz, xyz)
	assert.NotSame(t, sdk.color, color)
	assert.Equal(t, sdk.xyz.Width(), xyz.Width())
	assert.Equal(t, cloud.FormatARGBFloat, xyz.Format())
	assert.Equal(t, cloud.FormatARGB32, color.Format())
	assert.Equal(t, byte(1), xyz.Pixels()[0])

	for frame := uint64(3); frame < 6; frame++ {
		sdk.fill(byte(frame))
		require.NoError(t, src.Update(cloud.Frame{Index: frame}))
		assert.Same(t, xyz, mat.Texture(cloud.PropXYZTex))
		assert.Equal(t, byte(1), xyz.Pixels()[0])
		assert.Equal(t, byte(1), color.Pixels()[len(color.Pixels())-1])
	}

	src.SetLive(true)
	require.NoError(t, src.Update(cloud.Frame{Index: 6}))
	assert.Same(t, sdk.xyz, mat.Texture(cloud.PropXYZTex))
	assert.False(t, xyz.Released(), "frozen copies stay allocated until Destroy")

	// Freezing again takes a new snapshot into the same copies.
	sdk.fill(9)
	src.SetLive(false)
	require.NoError(t, src.Update(cloud.Frame{Index: 7}))
	assert.Same(t, xyz, mat.Texture(cloud.PropXYZTex))
	assert.Equal(t, byte(9), xyz.Pixels()[0])
	assert.Equal(t, 4, dev.Allocations, "two live textures plus two copies")
}

func TestSource_CopyEveryFrameTracksLiveFeed(t *testing.T) {
	dev := soft.NewDevice()
	src, sdk := newReadySource(t, cloud.NewRegistry(), dev, cloud.WithFreezeCopy(cloud.CopyEveryFrame), cloud.WithLive(false))
	mat := src.Material().(*soft.Material)

	sdk.fill(5)
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))
	xyz := mat.Texture(cloud.PropXYZTex).(*soft.Texture)
	assert.Equal(t, byte(5), xyz.Pixels()[0])
	assert.Equal(t, 4, dev.Blits)
}

type failingDevice struct {
	*soft.Device
}

var errOutOfMemory = errors.New("out of memory")

func (failingDevice) CreateRenderTexture(string, int, int, cloud.TextureFormat) (cloud.RenderTexture, error) {
	return nil, errOutOfMemory
}

func TestSource_FrozenAllocationFailureKeepsBindings(t *testing.T) {
	dev := failingDevice{soft.NewDevice()}
	sdk := newFakeSDK(t, dev.Device, 4, 3)
	src := cloud.NewSource(cloud.NewRegistry(), cloud.WithDevice(dev), cloud.WithSDK(sdk))
	src.Activate()
	require.NoError(t, src.Update(cloud.Frame{Index: 1}))

	src.SetLive(false)
	err := src.Update(cloud.Frame{Index: 2})
	require.ErrorIs(t, err, errOutOfMemory)

	mat := src.Material().(*soft.Material)
	assert.Same(t, sdk.xyz, mat.Texture(cloud.PropXYZTex))
	assert.False(t, src.Frozen())
}

func TestSource_MissingShaderLeavesSourceRegistered(t *testing.T) {
	reg := cloud.NewRegistry()
	dev := soft.NewBareDevice()
	log := &recordingLogger{}
	sdk := newFakeSDK(t, dev, 2, 2)
	src := cloud.NewSource(reg, cloud.WithDevice(dev), cloud.WithSDK(sdk), cloud.WithLogger(log))
	src.Activate()

	assert.True(t, reg.Contains(src))
	assert.Nil(t, src.Material())
	assert.Equal(t, cloud.ReadinessNoMaterial, src.Readiness())
	assert.NotEmpty(t, log.warnings)

	require.NoError(t, src.Update(cloud.Frame{Index: 1}))
	assert.Equal(t, 4, src.PointCount())
	assert.Equal(t, cloud.ReadinessNoMaterial, src.Readiness())
}

func TestSource_ActivateResolvesSDK(t *testing.T) {
	dev := soft.NewDevice()
	sdk := newFakeSDK(t, dev, 2, 2)
	src := cloud.NewSource(cloud.NewRegistry(), cloud.WithDevice(dev), cloud.WithSDKResolver(func() cloud.CameraSDK { return sdk }))
	src.Activate()

	assert.Same(t, sdk, src.SDK())
}

func TestSource_UserMaterialIsKept(t *testing.T) {
	dev := soft.NewBareDevice()
	mat := soft.NewMaterial("custom")
	src := cloud.NewSource(cloud.NewRegistry(), cloud.WithDevice(dev), cloud.WithMaterial(mat))
	src.Activate()

	assert.Same(t, mat, src.Material())
}

func TestSource_DestroyReleasesAndUnregisters(t *testing.T) {
	dev := soft.NewDevice()
	reg := cloud.NewRegistry()
	src, _ := newReadySource(t, reg, dev, cloud.WithLive(false))
	require.NoError(t, src.Update(cloud.Frame{Index: 2}))
	mat := src.Material().(*soft.Material)
	xyz := mat.Texture(cloud.PropXYZTex).(*soft.Texture)
	require.True(t, src.Frozen())

	src.Destroy()

	assert.False(t, reg.Contains(src))
	assert.Nil(t, src.Material())
	assert.True(t, xyz.Released())
	assert.False(t, src.Frozen())
	assert.NotPanics(t, src.Destroy)
}

func TestSource_DestroyWithoutActivate(t *testing.T) {
	src := cloud.NewSource(nil)
	assert.NotPanics(t, src.Destroy)
}

func TestSource_DeactivateKeepsResources(t *testing.T) {
	dev := soft.NewDevice()
	reg := cloud.NewRegistry()
	src, _ := newReadySource(t, reg, dev)

	src.Deactivate()
	assert.False(t, reg.Contains(src))
	assert.False(t, src.Active())
	assert.NotNil(t, src.Material())

	src.Activate()
	assert.True(t, reg.Contains(src))
	assert.Equal(t, 1, reg.Len())
}

type recordingLogger struct {
	debugs   []string
	warnings []string
}

func (l *recordingLogger) Debugf(format string, args ...any) { l.debugs = append(l.debugs, format) }
func (l *recordingLogger) Warnf(format string, args ...any)  { l.warnings = append(l.warnings, format) }
