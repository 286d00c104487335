package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/text"
)

// ExtrudeOptions controls how 2D shapes are swept along +Z.
type ExtrudeOptions struct {
	Depth float32
	Steps int

	BevelEnabled   bool
	BevelThickness float32
	BevelSize      float32
	BevelOffset    float32
	BevelSegments  int
}

// TextOptions adds the glyph layout parameters.
type TextOptions struct {
	ExtrudeOptions
	Size          float32
	CurveSegments int
}

// NewTextGeometry lays out s with f and extrudes every glyph shape.
func NewTextGeometry(s string, f text.Font, opts TextOptions) *Geometry {
	if opts.CurveSegments < 1 {
		opts.CurveSegments = 12
	}
	return ExtrudeShapes(text.Shapes(f, s, opts.Size, opts.CurveSegments), opts.ExtrudeOptions)
}

type extrudeLayer struct {
	z, offset float32
}

// ExtrudeShapes sweeps shapes from z = 0 to z = Depth. With a bevel the
// caps move out to -BevelThickness and Depth+BevelThickness and the walls
// grow outward by BevelSize. The result is unindexed with positions and
// UVs; caps face -Z and +Z.
func ExtrudeShapes(shapes []text.Shape, opts ExtrudeOptions) *Geometry {
	if opts.Steps < 1 {
		opts.Steps = 1
	}
	if !opts.BevelEnabled {
		opts.BevelSegments = 0
		opts.BevelThickness = 0
		opts.BevelSize = 0
		opts.BevelOffset = 0
	}

	var layers []extrudeLayer
	for b := 0; b < opts.BevelSegments; b++ {
		t := float32(b) / float32(opts.BevelSegments)
		layers = append(layers, extrudeLayer{
			z:      -opts.BevelThickness * math32.Cos(t*math32.Pi/2),
			offset: opts.BevelSize*math32.Sin(t*math32.Pi/2) + opts.BevelOffset,
		})
	}
	body := opts.BevelSize + opts.BevelOffset
	for s := 0; s <= opts.Steps; s++ {
		layers = append(layers, extrudeLayer{
			z:      opts.Depth / float32(opts.Steps) * float32(s),
			offset: body,
		})
	}
	for b := opts.BevelSegments - 1; b >= 0; b-- {
		t := float32(b) / float32(opts.BevelSegments)
		layers = append(layers, extrudeLayer{
			z:      opts.Depth + opts.BevelThickness*math32.Cos(t*math32.Pi/2),
			offset: opts.BevelSize*math32.Sin(t*math32.Pi/2) + opts.BevelOffset,
		})
	}

	geo := &Geometry{Version: 1}
	for _, sh := range shapes {
		extrudeShape(geo, sh, layers)
	}
	return geo
}

func extrudeShape(geo *Geometry, sh text.Shape, layers []extrudeLayer) {
	if len(sh.Outer) < 3 {
		return
	}

	rings := make([][2]int, 0, 1+len(sh.Holes))
	pts := append([]mgl32.Vec2(nil), sh.Outer...)
	rings = append(rings, [2]int{0, len(sh.Outer)})
	for _, h := range sh.Holes {
		rings = append(rings, [2]int{len(pts), len(h)})
		pts = append(pts, h...)
	}

	dirs := make([]mgl32.Vec2, len(pts))
	for _, r := range rings {
		start, n := r[0], r[1]
		for i := 0; i < n; i++ {
			prev := pts[start+(i+n-1)%n]
			next := pts[start+(i+1)%n]
			dirs[start+i] = bevelDirection(prev, pts[start+i], next)
		}
	}

	vertex := func(layer, i int) mgl32.Vec3 {
		l := layers[layer]
		p := pts[i].Add(dirs[i].Mul(l.offset))
		return mgl32.Vec3{p.X(), p.Y(), l.z}
	}

	tris := Triangulate(sh.Outer, sh.Holes)
	last := len(layers) - 1
	for _, t := range tris {
		geo.addCapTriangle(vertex(0, int(t[0])), vertex(0, int(t[2])), vertex(0, int(t[1])))
	}
	for _, t := range tris {
		geo.addCapTriangle(vertex(last, int(t[0])), vertex(last, int(t[1])), vertex(last, int(t[2])))
	}

	for _, r := range rings {
		start, n := r[0], r[1]
		for i := 0; i < n; i++ {
			ci, cj := start+i, start+(i+1)%n
			for k := 0; k < last; k++ {
				geo.addSideQuad(vertex(k, ci), vertex(k, cj), vertex(k+1, cj), vertex(k+1, ci))
			}
		}
	}
}

// bevelDirection is the miter vector at p that moves both adjacent edges
// outward by one unit, capped at length sqrt(2) on sharp corners.
func bevelDirection(prev, p, next mgl32.Vec2) mgl32.Vec2 {
	outward := func(a, b mgl32.Vec2) mgl32.Vec2 {
		e := b.Sub(a)
		l := e.Len()
		if l == 0 {
			return mgl32.Vec2{}
		}
		return mgl32.Vec2{e.Y() / l, -e.X() / l}
	}
	n1, n2 := outward(prev, p), outward(p, next)
	d := 1 + n1.Dot(n2)
	if d < 1e-6 {
		return n1
	}
	v := n1.Add(n2).Mul(1 / d)
	if l := v.Len(); l > math32.Sqrt2 {
		v = v.Mul(math32.Sqrt2 / l)
	}
	return v
}

func (g *Geometry) addCapTriangle(a, b, c mgl32.Vec3) {
	g.Positions = append(g.Positions, a, b, c)
	g.UVs = append(g.UVs,
		mgl32.Vec2{a.X(), a.Y()},
		mgl32.Vec2{b.X(), b.Y()},
		mgl32.Vec2{c.X(), c.Y()},
	)
}

// addSideQuad emits a, b, c and a, c, d. UVs run along whichever of X or Y
// the bottom edge spans more, against 1 - z.
func (g *Geometry) addSideQuad(a, b, c, d mgl32.Vec3) {
	axis := 1
	if math32.Abs(a.Y()-b.Y()) < math32.Abs(a.X()-b.X()) {
		axis = 0
	}
	uv := func(p mgl32.Vec3) mgl32.Vec2 {
		return mgl32.Vec2{p[axis], 1 - p.Z()}
	}
	g.Positions = append(g.Positions, a, b, c, a, c, d)
	g.UVs = append(g.UVs, uv(a), uv(b), uv(c), uv(a), uv(c), uv(d))
}
