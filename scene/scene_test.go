package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChildReparents(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.AddChild(c)
	b.AddChild(c)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, c.Parent)

	// cycles are refused
	c.AddChild(b)
	assert.Empty(t, c.Children)
	b.AddChild(b)
	assert.Len(t, b.Children, 1)
}

func TestWorldMatrixFollowsParent(t *testing.T) {
	parent, child := NewNode("parent"), NewNode("child")
	parent.AddChild(child)
	child.SetPosition(mgl32.Vec3{1, 0, 0})
	parent.SetPosition(mgl32.Vec3{0, 2, 0})

	p := child.WorldPosition()
	assert.InDelta(t, 1, p.X(), 1e-6)
	assert.InDelta(t, 2, p.Y(), 1e-6)

	parent.SetRotationEuler(0, mgl32.DegToRad(90), 0)
	p = child.WorldPosition()
	assert.InDelta(t, 0, p.X(), 1e-5)
	assert.InDelta(t, -1, p.Z(), 1e-5)
}

func TestChildMissing(t *testing.T) {
	root := NewNode("Scene")
	root.AddChild(NewNode("Baked"))

	_, err := root.Child("Smoke")
	var missing *NamedNodeMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Smoke", missing.Name)
	assert.Equal(t, "Scene", missing.Parent)
}

func newModel() *Node {
	root := NewNode("Scene")
	for _, name := range []string{"Baked", "Smoke", "Smoke2"} {
		n := NewNode(name)
		n.Mesh = NewMesh(name, CreatePlane(1, 1, 1, 1), NewBasicMaterial("default", nil))
		root.AddChild(n)
	}
	return root
}

func TestBindMaterialsIdempotent(t *testing.T) {
	root := newModel()
	baked := NewBasicMaterial("baked", nil)
	smoke := NewShaderMaterial("smoke", "smoke", map[string]any{UniformTime: float32(0)})
	smoke2 := NewShaderMaterial("smoke2", "smoke", map[string]any{UniformTime: float32(0)})
	bindings := map[string]Material{"Baked": baked, "Smoke": smoke, "Smoke2": smoke2}

	snapshot := func() map[string]Material {
		out := map[string]Material{}
		for _, c := range root.Children {
			out[c.Name] = c.Mesh.Material
		}
		return out
	}

	require.NoError(t, BindMaterials(root, bindings))
	first := snapshot()
	require.NoError(t, BindMaterials(root, bindings))
	assert.Equal(t, first, snapshot())

	assert.Same(t, baked, first["Baked"])
	assert.Same(t, smoke, first["Smoke"])
	assert.Same(t, smoke2, first["Smoke2"])
}

func TestBindMaterialsMissingLeavesGraph(t *testing.T) {
	root := newModel()
	root.RemoveChild(root.Children[2])
	before := root.Children[0].Mesh.Material

	err := BindMaterials(root, map[string]Material{
		"Baked":  NewBasicMaterial("baked", nil),
		"Smoke2": NewBasicMaterial("smoke2", nil),
	})
	var missing *NamedNodeMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Smoke2", missing.Name)
	assert.Same(t, before, root.Children[0].Mesh.Material)
}

func TestBindMaterialsSplitPrimitives(t *testing.T) {
	root := NewNode("Scene")
	group := NewNode("Baked")
	for _, name := range []string{"Baked_0", "Baked_1"} {
		n := NewNode(name)
		n.Mesh = NewMesh(name, CreatePlane(1, 1, 1, 1), nil)
		group.AddChild(n)
	}
	root.AddChild(group)

	mat := NewBasicMaterial("baked", nil)
	require.NoError(t, BindMaterials(root, map[string]Material{"Baked": mat}))
	for _, c := range group.Children {
		assert.Same(t, mat, c.Mesh.Material)
	}
}

func TestShaderMaterialContract(t *testing.T) {
	m := NewShaderMaterial("smoke", "smoke", map[string]any{
		UniformTime:  float32(0),
		UniformAlpha: float32(0),
	})

	m.SetTime(2.5)
	m.SetTime(1)
	assert.Equal(t, float32(2.5), m.Time())

	m.SetAlpha(1.7)
	assert.Equal(t, float32(1), m.Alpha())
	m.SetAlpha(-1)
	assert.Equal(t, float32(0), m.Alpha())

	assert.Panics(t, func() {
		NewShaderMaterial("bad", "smoke", map[string]any{UniformTime: 1.0})
	})
}

func TestRenderListOrdering(t *testing.T) {
	s := NewScene()
	cam := NewPerspectiveCamera(75, 1, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{})

	add := func(name string, z float32, transparent bool, order int) *Node {
		mat := NewBasicMaterial(name, nil)
		mat.Transparent = transparent
		n := NewNode(name)
		n.Mesh = NewMesh(name, CreatePlane(1, 1, 1, 1), mat)
		n.Mesh.RenderOrder = order
		n.SetPosition(mgl32.Vec3{0, 0, z})
		s.AddNode(n)
		return n
	}
	add("far", -5, false, 0)
	add("near", 5, false, 0)
	add("glassFar", -2, true, 0)
	add("glassNear", 2, true, 0)
	add("overlay", 3, true, 1)
	add("behind", 20, false, 0)

	opaque, transparent := s.RenderList(cam)
	names := func(items []RenderItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Node.Name)
		}
		return out
	}
	assert.Equal(t, []string{"near", "far"}, names(opaque))
	assert.Equal(t, []string{"glassFar", "glassNear", "overlay"}, names(transparent))
}

func TestHiddenParentHidesChildren(t *testing.T) {
	s := NewScene()
	group := NewNode("group")
	child := NewNode("child")
	child.Mesh = NewMesh("child", CreatePlane(1, 1, 1, 1), NewBasicMaterial("m", nil))
	group.AddChild(child)
	s.AddNode(group)

	assert.Len(t, s.GetVisibleNodes(), 1)
	group.Visible = false
	assert.Empty(t, s.GetVisibleNodes())
}
