package soft

import (
	"github.com/gekko3d/depthcloud/cloud"
	"github.com/go-gl/mathgl/mgl32"
)

// Material records property assignments by name.
type Material struct {
	shader   string
	ids      map[string]cloud.PropertyID
	names    []string
	textures map[cloud.PropertyID]cloud.Texture
	matrices map[cloud.PropertyID]mgl32.Mat4
	floats   map[cloud.PropertyID]float32
}

var _ cloud.Material = (*Material)(nil)

func NewMaterial(shader string) *Material {
	return &Material{
		shader:   shader,
		ids:      make(map[string]cloud.PropertyID),
		textures: make(map[cloud.PropertyID]cloud.Texture),
		matrices: make(map[cloud.PropertyID]mgl32.Mat4),
		floats:   make(map[cloud.PropertyID]float32),
	}
}

func (m *Material) Shader() string { return m.shader }

func (m *Material) PropertyID(name string) cloud.PropertyID {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := cloud.PropertyID(len(m.names))
	m.ids[name] = id
	m.names = append(m.names, name)
	return id
}

func (m *Material) SetTexture(id cloud.PropertyID, tex cloud.Texture) { m.textures[id] = tex }
func (m *Material) SetMatrix(id cloud.PropertyID, v mgl32.Mat4)       { m.matrices[id] = v }
func (m *Material) SetFloat(id cloud.PropertyID, v float32)           { m.floats[id] = v }

func (m *Material) Texture(name string) cloud.Texture {
	return m.textures[m.PropertyID(name)]
}

func (m *Material) Matrix(name string) (mgl32.Mat4, bool) {
	v, ok := m.matrices[m.PropertyID(name)]
	return v, ok
}

func (m *Material) Float(name string) (float32, bool) {
	v, ok := m.floats[m.PropertyID(name)]
	return v, ok
}
