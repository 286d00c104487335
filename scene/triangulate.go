package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rclancey/earcut"
)

// Triangulate splits an outline with holes into counter-clockwise
// triangles. Indices address the concatenation of outer followed by every
// hole in order. Holes with fewer than three points are ignored.
func Triangulate(outer []mgl32.Vec2, holes [][]mgl32.Vec2) [][3]uint32 {
	if len(outer) < 3 {
		return nil
	}

	// index maps earcut vertex numbers back to the concatenated input
	data := make([]float64, 0, 2*len(outer))
	var index []uint32
	var holeStarts []int
	add := func(ring []mgl32.Vec2, base int) {
		for i, p := range ring {
			data = append(data, float64(p.X()), float64(p.Y()))
			index = append(index, uint32(base+i))
		}
	}

	add(outer, 0)
	base := len(outer)
	for _, h := range holes {
		if len(h) >= 3 {
			holeStarts = append(holeStarts, len(index))
			add(h, base)
		}
		base += len(h)
	}

	flat, err := earcut.Earcut(data, holeStarts, 2)
	if err != nil {
		return nil
	}

	all := make([]mgl32.Vec2, 0, len(index))
	all = append(all, outer...)
	for _, h := range holes {
		all = append(all, h...)
	}

	tris := make([][3]uint32, 0, len(flat)/3)
	for i := 0; i+2 < len(flat); i += 3 {
		a, b, c := index[flat[i]], index[flat[i+1]], index[flat[i+2]]
		switch area := cross2(all[a], all[b], all[c]); {
		case area > 0:
			tris = append(tris, [3]uint32{a, b, c})
		case area < 0:
			tris = append(tris, [3]uint32{a, c, b})
		}
	}
	return tris
}

func cross2(o, a, b mgl32.Vec2) float32 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}
