package cloud_test

import (
	"testing"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	reg := cloud.NewRegistry()
	src := cloud.NewSource(reg)

	reg.Register(src)
	reg.Register(src)

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []*cloud.Source{src}, reg.Snapshot())
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	reg := cloud.NewRegistry()
	a := cloud.NewSource(reg)
	b := cloud.NewSource(reg)
	reg.Register(a)

	assert.NotPanics(t, func() { reg.Unregister(b) })
	assert.NotPanics(t, func() { reg.Unregister(nil) })
	assert.Equal(t, []*cloud.Source{a}, reg.Snapshot())
}

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	reg := cloud.NewRegistry()
	a := cloud.NewSource(reg, cloud.WithName("a"))
	b := cloud.NewSource(reg, cloud.WithName("b"))
	c := cloud.NewSource(reg, cloud.WithName("c"))
	reg.Register(b)
	reg.Register(a)
	reg.Register(c)
	reg.Unregister(a)
	reg.Register(a)

	assert.Equal(t, []*cloud.Source{b, c, a}, reg.Snapshot())
}

func TestRegistry_SnapshotSurvivesUnregister(t *testing.T) {
	reg := cloud.NewRegistry()
	a := cloud.NewSource(reg)
	b := cloud.NewSource(reg)
	reg.Register(a)
	reg.Register(b)

	snap := reg.Snapshot()
	reg.Unregister(a)
	reg.Register(cloud.NewSource(reg))

	assert.Equal(t, []*cloud.Source{a, b}, snap)
	assert.False(t, reg.Contains(a))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_IgnoresNil(t *testing.T) {
	reg := cloud.NewRegistry()
	reg.Register(nil)
	assert.Equal(t, 0, reg.Len())
}
