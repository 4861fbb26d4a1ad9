package cloud_test

import (
	"testing"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/gekko3d/depthcloud/cloud/soft"
	"github.com/stretchr/testify/require"
)

type fakeSDK struct {
	ready bool
	w, h  int
	xyz   *soft.Texture
	color *soft.Texture
}

func newFakeSDK(t *testing.T, dev *soft.Device, w, h int) *fakeSDK {
	t.Helper()
	xyz, err := dev.CreateTexture("xyz", w, h, cloud.FormatARGBFloat)
	require.NoError(t, err)
	color, err := dev.CreateTexture("color", w, h, cloud.FormatARGB32)
	require.NoError(t, err)
	return &fakeSDK{ready: true, w: w, h: h, xyz: xyz, color: color}
}

func (f *fakeSDK) IsReady() bool                  { return f.ready }
func (f *fakeSDK) ImageWidth() int                { return f.w }
func (f *fakeSDK) ImageHeight() int               { return f.h }
func (f *fakeSDK) PositionTexture() cloud.Texture { return f.xyz }
func (f *fakeSDK) ColorTexture() cloud.Texture    { return f.color }

// fill writes the same byte into every texel of both live textures.
func (f *fakeSDK) fill(v byte) {
	for i := range f.xyz.Pixels() {
		f.xyz.Pixels()[i] = v
	}
	for i := range f.color.Pixels() {
		f.color.Pixels()[i] = v
	}
}

func newReadySource(t *testing.T, reg *cloud.Registry, dev *soft.Device, opts ...cloud.SourceOption) (*cloud.Source, *fakeSDK) {
	t.Helper()
	sdk := newFakeSDK(t, dev, 4, 3)
	opts = append([]cloud.SourceOption{cloud.WithDevice(dev), cloud.WithSDK(sdk)}, opts...)
	src := cloud.NewSource(reg, opts...)
	src.Activate()
	require.NoError(t, src.Update(cloud.Frame{Index: 1}))
	return src, sdk
}
