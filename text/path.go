package text

import "github.com/go-gl/mathgl/mgl32"

type segmentOp uint8

const (
	opMoveTo segmentOp = iota
	opLineTo
	opQuadTo
	opCubicTo
)

type segment struct {
	op segmentOp
	// Control points first, end point last.
	pts [3]mgl32.Vec2
}

// Path is a glyph outline in font units with Y pointing up. A MoveTo starts
// a new closed contour.
type Path struct {
	segs []segment
}

func (p *Path) MoveTo(x, y float32) {
	p.segs = append(p.segs, segment{op: opMoveTo, pts: [3]mgl32.Vec2{{x, y}}})
}

func (p *Path) LineTo(x, y float32) {
	p.segs = append(p.segs, segment{op: opLineTo, pts: [3]mgl32.Vec2{{x, y}}})
}

func (p *Path) QuadTo(cx, cy, x, y float32) {
	p.segs = append(p.segs, segment{op: opQuadTo, pts: [3]mgl32.Vec2{{cx, cy}, {x, y}}})
}

func (p *Path) CubicTo(c1x, c1y, c2x, c2y, x, y float32) {
	p.segs = append(p.segs, segment{op: opCubicTo, pts: [3]mgl32.Vec2{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

// Empty reports a path without drawing segments, such as a space.
func (p *Path) Empty() bool {
	for _, s := range p.segs {
		if s.op != opMoveTo {
			return false
		}
	}
	return true
}

// Flatten converts the outline into polygons. Curves are split into
// `segments` straight pieces, lines stay one piece. Repeated points and the
// closing point that duplicates the first are dropped, and contours with
// fewer than three points are discarded.
func (p *Path) Flatten(segments int) [][]mgl32.Vec2 {
	if segments < 1 {
		segments = 1
	}

	var contours [][]mgl32.Vec2
	var cur []mgl32.Vec2
	var pen mgl32.Vec2

	push := func(pt mgl32.Vec2) {
		if n := len(cur); n > 0 && cur[n-1].ApproxEqual(pt) {
			return
		}
		cur = append(cur, pt)
	}
	flush := func() {
		if n := len(cur); n > 2 && cur[n-1].ApproxEqual(cur[0]) {
			cur = cur[:n-1]
		}
		if len(cur) >= 3 {
			contours = append(contours, cur)
		}
		cur = nil
	}

	for _, s := range p.segs {
		switch s.op {
		case opMoveTo:
			flush()
			pen = s.pts[0]
			push(pen)
		case opLineTo:
			if cur == nil {
				push(pen)
			}
			pen = s.pts[0]
			push(pen)
		case opQuadTo:
			if cur == nil {
				push(pen)
			}
			p0, c, end := pen, s.pts[0], s.pts[1]
			for i := 1; i <= segments; i++ {
				push(quadPoint(p0, c, end, float32(i)/float32(segments)))
			}
			pen = end
		case opCubicTo:
			if cur == nil {
				push(pen)
			}
			p0, c1, c2, end := pen, s.pts[0], s.pts[1], s.pts[2]
			for i := 1; i <= segments; i++ {
				push(cubicPoint(p0, c1, c2, end, float32(i)/float32(segments)))
			}
			pen = end
		}
	}
	flush()
	return contours
}

func quadPoint(p0, c, p1 mgl32.Vec2, t float32) mgl32.Vec2 {
	k := 1 - t
	return p0.Mul(k * k).Add(c.Mul(2 * k * t)).Add(p1.Mul(t * t))
}

func cubicPoint(p0, c1, c2, p1 mgl32.Vec2, t float32) mgl32.Vec2 {
	k := 1 - t
	return p0.Mul(k * k * k).
		Add(c1.Mul(3 * k * k * t)).
		Add(c2.Mul(3 * k * t * t)).
		Add(p1.Mul(t * t * t))
}

// SignedArea is positive for counter-clockwise polygons (Y up).
func SignedArea(poly []mgl32.Vec2) float32 {
	var a float32
	for i, j := len(poly)-1, 0; j < len(poly); i, j = j, j+1 {
		a += poly[i].X()*poly[j].Y() - poly[j].X()*poly[i].Y()
	}
	return a * 0.5
}

// ContainsPoint is the even-odd test of pt against poly.
func ContainsPoint(poly []mgl32.Vec2, pt mgl32.Vec2) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y() > pt.Y()) != (b.Y() > pt.Y()) {
			x := (b.X()-a.X())*(pt.Y()-a.Y())/(b.Y()-a.Y()) + a.X()
			if pt.X() < x {
				inside = !inside
			}
		}
	}
	return inside
}
