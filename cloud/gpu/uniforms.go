package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

func putMat4(buf []byte, offset int, m mgl32.Mat4) {
	// mgl32 is column-major, matching WGSL mat4x4 layout.
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
	}
}

// encodeCamera packs CameraData {view_proj: mat4x4, viewport: vec4}.
func encodeCamera(cam *cloud.Camera) []byte {
	buf := make([]byte, cameraUniformSize)
	vp := mgl32.Ident4()
	var viewport cloud.Viewport
	if cam != nil {
		vp = cam.ViewProjection()
		viewport = cam.Viewport
	}
	putMat4(buf, 0, vp)
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(float32(viewport.X)))
	binary.LittleEndian.PutUint32(buf[68:], math.Float32bits(float32(viewport.Y)))
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(float32(viewport.Width)))
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(float32(viewport.Height)))
	return buf
}

// cloudParams mirrors CloudData in point_cloud.wgsl.
type cloudParams struct {
	position  mgl32.Mat4
	scaleSize float32
	width     uint32
	height    uint32
}

func (p cloudParams) encode() []byte {
	buf := make([]byte, cloudUniformSize)
	putMat4(buf, 0, p.position)
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(p.scaleSize))
	binary.LittleEndian.PutUint32(buf[68:], p.width)
	binary.LittleEndian.PutUint32(buf[72:], p.height)
	return buf
}
