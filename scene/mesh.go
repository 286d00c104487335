package scene

// Mesh pairs a geometry with the material it is drawn with. A scene graph
// Node carries at most one Mesh.
type Mesh struct {
	Name     string
	Geometry *Geometry
	Material Material

	// RenderOrder breaks ties between transparent meshes at equal depth.
	RenderOrder int
	// FrustumCulled lets the renderer skip the mesh when its bounds leave the
	// view. Screen-space meshes turn it off.
	FrustumCulled bool
}

func NewMesh(name string, geometry *Geometry, material Material) *Mesh {
	return &Mesh{
		Name:          name,
		Geometry:      geometry,
		Material:      material,
		FrustumCulled: true,
	}
}

// LocalAABB is the geometry's bounding box in mesh space.
func (m *Mesh) LocalAABB() AABB {
	if m.Geometry == nil {
		return emptyAABB()
	}
	return m.Geometry.BoundingBox()
}
