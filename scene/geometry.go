package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/core"
)

// Attribute names a per-vertex stream of a Geometry.
type Attribute string

const (
	AttributePosition Attribute = "position"
	AttributeNormal   Attribute = "normal"
	AttributeUV       Attribute = "uv"
)

// Geometry stores per-vertex attributes as separate streams plus an optional
// index buffer. A nil Indices slice means every three vertices form a triangle.
type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32

	// Version increases on every structural change so the backend knows to
	// re-upload.
	Version uint32
}

func NewGeometry(positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) *Geometry {
	return &Geometry{
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		Indices:   indices,
		Version:   1,
	}
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// TriangleCount counts indexed triangles, or vertex triples when unindexed.
func (g *Geometry) TriangleCount() int {
	if g.Indices != nil {
		return len(g.Indices) / 3
	}
	return len(g.Positions) / 3
}

func (g *Geometry) HasAttribute(a Attribute) bool {
	switch a {
	case AttributePosition:
		return g.Positions != nil
	case AttributeNormal:
		return g.Normals != nil
	case AttributeUV:
		return g.UVs != nil
	}
	return false
}

// DeleteAttribute drops a vertex stream.
func (g *Geometry) DeleteAttribute(a Attribute) {
	switch a {
	case AttributePosition:
		g.Positions = nil
	case AttributeNormal:
		g.Normals = nil
	case AttributeUV:
		g.UVs = nil
	}
	g.Version++
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Empty reports a box that contains nothing.
func (b AABB) Empty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

func (b AABB) Size() mgl32.Vec3 {
	if b.Empty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func emptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b *AABB) expand(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// BoundingBox returns the tight box around the referenced positions.
func (g *Geometry) BoundingBox() AABB {
	box := emptyAABB()
	for _, p := range g.Positions {
		box.expand(p)
	}
	return box
}

// ComputeVertexNormals rebuilds the normal stream from face normals. Indexed
// geometry accumulates unnormalized face normals per vertex, which weights
// them by triangle area.
func (g *Geometry) ComputeVertexNormals() {
	normals := make([]mgl32.Vec3, len(g.Positions))

	face := func(a, b, c uint32) mgl32.Vec3 {
		pa, pb, pc := g.Positions[a], g.Positions[b], g.Positions[c]
		cb := pc.Sub(pb)
		ab := pa.Sub(pb)
		return cb.Cross(ab)
	}

	if g.Indices != nil {
		for i := 0; i+2 < len(g.Indices); i += 3 {
			a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
			n := face(a, b, c)
			normals[a] = normals[a].Add(n)
			normals[b] = normals[b].Add(n)
			normals[c] = normals[c].Add(n)
		}
	} else {
		for i := 0; i+2 < len(g.Positions); i += 3 {
			a, b, c := uint32(i), uint32(i+1), uint32(i+2)
			n := face(a, b, c)
			normals[a], normals[b], normals[c] = n, n, n
		}
	}

	for i, n := range normals {
		if l := n.Len(); l > 0 {
			normals[i] = n.Mul(1 / l)
		}
	}
	g.Normals = normals
	g.Version++
}

// vertexKey holds quantized attribute values; unused slots stay zero.
type vertexKey [8]int64

// MergeVertices returns an indexed copy of g in which vertices whose present
// attributes agree within tolerance share one index. g is left untouched.
func (g *Geometry) MergeVertices(tolerance float32) *Geometry {
	tol := math.Max(float64(tolerance), 1e-12)
	multiplier := math.Pow(10, math.Log10(1/tol))
	additive := tol * 0.5 * multiplier
	quantize := func(v float32) int64 {
		return int64(math.Trunc(float64(v)*multiplier + additive))
	}

	count := len(g.Positions)
	if g.Indices != nil {
		count = len(g.Indices)
	}

	out := &Geometry{Version: 1}
	seen := make(map[vertexKey]uint32, count)
	indices := make([]uint32, 0, count)

	for i := 0; i < count; i++ {
		src := uint32(i)
		if g.Indices != nil {
			src = g.Indices[i]
		}

		var key vertexKey
		p := g.Positions[src]
		key[0], key[1], key[2] = quantize(p[0]), quantize(p[1]), quantize(p[2])
		if g.Normals != nil {
			n := g.Normals[src]
			key[3], key[4], key[5] = quantize(n[0]), quantize(n[1]), quantize(n[2])
		}
		if g.UVs != nil {
			uv := g.UVs[src]
			key[6], key[7] = quantize(uv[0]), quantize(uv[1])
		}

		if idx, ok := seen[key]; ok {
			indices = append(indices, idx)
			continue
		}
		idx := uint32(len(out.Positions))
		seen[key] = idx
		indices = append(indices, idx)
		out.Positions = append(out.Positions, p)
		if g.Normals != nil {
			out.Normals = append(out.Normals, g.Normals[src])
		}
		if g.UVs != nil {
			out.UVs = append(out.UVs, g.UVs[src])
		}
	}
	out.Indices = indices
	return out
}

// Interleave packs the streams into the GPU vertex layout. Missing normals
// and UVs are zero.
func (g *Geometry) Interleave() []core.Vertex {
	verts := make([]core.Vertex, len(g.Positions))
	for i, p := range g.Positions {
		verts[i].Position = p
		if i < len(g.Normals) {
			verts[i].Normal = g.Normals[i]
		}
		if i < len(g.UVs) {
			verts[i].UV = g.UVs[i]
		}
	}
	return verts
}
