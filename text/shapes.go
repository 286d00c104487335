package text

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Shape is a filled polygon in world units. Outer winds counter-clockwise
// and every hole clockwise (Y up).
type Shape struct {
	Outer []mgl32.Vec2
	Holes [][]mgl32.Vec2
}

// Shapes lays out s with the given em size and flattens every glyph. Lines
// start at x = 0 and a newline moves the pen down by the font's line height.
// Missing characters fall back to '?' and are skipped when that is missing
// too.
func Shapes(f Font, s string, size float32, curveSegments int) []Shape {
	scale := size / f.Resolution()
	lineHeight := f.LineHeight() * scale

	var shapes []Shape
	var offset mgl32.Vec2
	for _, r := range s {
		if r == '\n' {
			offset[0] = 0
			offset[1] -= lineHeight
			continue
		}
		g, ok := f.Glyph(r)
		if !ok {
			if g, ok = f.Glyph('?'); !ok {
				continue
			}
		}
		if g.Path != nil && !g.Path.Empty() {
			contours := g.Path.Flatten(curveSegments)
			for _, c := range contours {
				for i, p := range c {
					c[i] = p.Mul(scale).Add(offset)
				}
			}
			shapes = append(shapes, classify(contours)...)
		}
		offset[0] += g.Advance * scale
	}
	return shapes
}

// classify groups contours into shapes by nesting depth: a contour enclosed
// by an even number of others is an outline, an odd number makes it a hole
// of its innermost enclosing outline. Winding is normalized afterwards, so
// fonts of either orientation convention work.
func classify(contours [][]mgl32.Vec2) []Shape {
	type contour struct {
		pts    []mgl32.Vec2
		area   float32
		depth  int
		parent int
	}

	cs := make([]contour, 0, len(contours))
	for _, pts := range contours {
		a := SignedArea(pts)
		if math32.Abs(a) < 1e-12 {
			continue
		}
		cs = append(cs, contour{pts: pts, area: a, parent: -1})
	}

	for i := range cs {
		sample := cs[i].pts[0]
		for j := range cs {
			if i == j || math32.Abs(cs[j].area) <= math32.Abs(cs[i].area) {
				continue
			}
			if ContainsPoint(cs[j].pts, sample) {
				cs[i].depth++
			}
		}
	}

	// Innermost enclosing contour one level up.
	for i := range cs {
		if cs[i].depth == 0 {
			continue
		}
		best := -1
		for j := range cs {
			if cs[j].depth != cs[i].depth-1 || !ContainsPoint(cs[j].pts, cs[i].pts[0]) {
				continue
			}
			if best < 0 || math32.Abs(cs[j].area) < math32.Abs(cs[best].area) {
				best = j
			}
		}
		cs[i].parent = best
	}

	var shapes []Shape
	index := make(map[int]int)
	for i, c := range cs {
		if c.depth%2 != 0 {
			continue
		}
		pts := c.pts
		if c.area < 0 {
			pts = reversed(pts)
		}
		index[i] = len(shapes)
		shapes = append(shapes, Shape{Outer: pts})
	}
	for _, c := range cs {
		if c.depth%2 == 0 || c.parent < 0 {
			continue
		}
		si, ok := index[c.parent]
		if !ok {
			continue
		}
		pts := c.pts
		if c.area > 0 {
			pts = reversed(pts)
		}
		shapes[si].Holes = append(shapes[si].Holes, pts)
	}
	return shapes
}

func reversed(pts []mgl32.Vec2) []mgl32.Vec2 {
	out := slices.Clone(pts)
	slices.Reverse(out)
	return out
}
