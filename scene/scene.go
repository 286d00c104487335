package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/core"
)

// Scene owns the node graph drawn by the renderer.
type Scene struct {
	Root       *Node
	Background core.Color
}

func NewScene() *Scene {
	return &Scene{
		Root:       NewNode("Root"),
		Background: core.ColorBlack,
	}
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

func (s *Scene) RemoveNode(node *Node) {
	s.Root.RemoveChild(node)
}

// GetVisibleNodes returns every node with a mesh whose whole ancestor chain
// is visible.
func (s *Scene) GetVisibleNodes() []*Node {
	var visible []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if !n.Visible {
			return
		}
		if n.Mesh != nil {
			visible = append(visible, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(s.Root)
	return visible
}

// RenderItem is one draw of a mesh with its resolved world transform.
type RenderItem struct {
	Node  *Node
	Mesh  *Mesh
	World mgl32.Mat4
	// Depth is the view-space distance used for sorting.
	Depth float32
}

// RenderList returns the draws for camera: opaque meshes front to back, then
// transparent meshes back to front. Meshes outside the frustum are dropped
// unless they opt out of culling.
func (s *Scene) RenderList(camera *Camera) (opaque, transparent []RenderItem) {
	vp := camera.GetViewProjectionMatrix()
	view := camera.GetViewMatrix()
	frustum := FrustumFromVP(vp)

	for _, n := range s.GetVisibleNodes() {
		m := n.Mesh
		if m.Geometry == nil || m.Material == nil {
			continue
		}
		world := n.GetWorldMatrix()
		if m.FrustumCulled {
			if !ComputeAABB(m, world).IntersectsFrustum(&frustum) {
				continue
			}
		}
		center := mgl32.TransformCoordinate(m.LocalAABB().Center(), world)
		depth := -mgl32.TransformCoordinate(center, view).Z()
		item := RenderItem{Node: n, Mesh: m, World: world, Depth: depth}
		if m.Material.Base().Transparent {
			transparent = append(transparent, item)
		} else {
			opaque = append(opaque, item)
		}
	}

	sort.SliceStable(opaque, func(i, j int) bool {
		return opaque[i].Depth < opaque[j].Depth
	})
	sort.SliceStable(transparent, func(i, j int) bool {
		a, b := transparent[i], transparent[j]
		if a.Mesh.RenderOrder != b.Mesh.RenderOrder {
			return a.Mesh.RenderOrder < b.Mesh.RenderOrder
		}
		return a.Depth > b.Depth
	})
	return opaque, transparent
}

// BindMaterials assigns materials to the direct children of root by name.
// Every name must exist; on error nothing is changed. Binding the same map
// twice leaves the graph as after the first call.
func BindMaterials(root *Node, bindings map[string]Material) error {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	targets := make([]*Node, len(names))
	for i, name := range names {
		child, err := root.Child(name)
		if err != nil {
			return err
		}
		targets[i] = child
	}
	for i, name := range names {
		bindNode(targets[i], bindings[name])
	}
	return nil
}

// bindNode sets the material of the node's mesh, or of every mesh directly
// below it when the node was split into primitives.
func bindNode(n *Node, mat Material) {
	if n.Mesh != nil {
		n.Mesh.Material = mat
		return
	}
	for _, c := range n.Children {
		if c.Mesh != nil {
			c.Mesh.Material = mat
		}
	}
}
