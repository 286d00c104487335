package text

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A ring "o" (outer square with a square hole, both drawn clockwise the way
// typeface exporters do), a bar "l" and a space.
const testTypeface = `{
	"familyName": "Test",
	"resolution": 1000,
	"underlineThickness": 50,
	"boundingBox": {"xMin": 0, "xMax": 800, "yMin": -200, "yMax": 800},
	"glyphs": {
		"o": {"ha": 700, "o": "m 0 0 l 0 600 l 600 600 l 600 0 l 0 0 m 200 200 l 400 200 l 400 400 l 200 400 l 200 200"},
		"l": {"ha": 300, "o": "m 0 0 l 200 0 l 200 700 l 0 700 z"},
		" ": {"ha": 250, "o": ""}
	}
}`

func loadTestFont(t *testing.T) *TypefaceFont {
	t.Helper()
	f, err := ParseTypeface([]byte(testTypeface))
	require.NoError(t, err)
	return f
}

func TestParseTypeface(t *testing.T) {
	f := loadTestFont(t)

	assert.Equal(t, "Test", f.Family)
	assert.Equal(t, float32(1000), f.Resolution())
	assert.Equal(t, float32(1050), f.LineHeight())

	g, ok := f.Glyph('o')
	require.True(t, ok)
	assert.Equal(t, float32(700), g.Advance)

	_, ok = f.Glyph('x')
	assert.False(t, ok)
}

func TestParseTypefaceRejectsBadInput(t *testing.T) {
	_, err := ParseTypeface([]byte(`{"resolution": 0, "glyphs": {"a": {"ha": 1, "o": ""}}}`))
	assert.Error(t, err)

	_, err = ParseTypeface([]byte(`{"resolution": 1000, "glyphs": {"a": {"ha": 1, "o": "m 0"}}}`))
	assert.Error(t, err)

	_, err = ParseTypeface([]byte(`{"resolution": 1000, "glyphs": {"a": {"ha": 1, "o": "x 1 2"}}}`))
	assert.Error(t, err)
}

func TestParseOutlineCommandOrder(t *testing.T) {
	// q lists the end point first, then the control point.
	p, err := parseOutline("m 0 0 q 10 0 5 10")
	require.NoError(t, err)
	require.Len(t, p.segs, 2)
	assert.Equal(t, mgl32.Vec2{5, 10}, p.segs[1].pts[0])
	assert.Equal(t, mgl32.Vec2{10, 0}, p.segs[1].pts[1])

	p, err = parseOutline("m 0 0 b 9 0 1 1 2 2")
	require.NoError(t, err)
	assert.Equal(t, [3]mgl32.Vec2{{1, 1}, {2, 2}, {9, 0}}, p.segs[1].pts)
}

func TestFlatten(t *testing.T) {
	p := &Path{}
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.QuadTo(10, 10, 0, 10)
	p.LineTo(0, 0)

	contours := p.Flatten(4)
	require.Len(t, contours, 1)
	// start, line end, four curve points; the closing point is dropped.
	assert.Len(t, contours[0], 6)
	assert.InDelta(t, 0, contours[0][5].X(), 1e-6)
	assert.InDelta(t, 10, contours[0][5].Y(), 1e-6)

	degenerate := &Path{}
	degenerate.MoveTo(0, 0)
	degenerate.LineTo(1, 1)
	assert.Empty(t, degenerate.Flatten(4))
}

func TestSignedAreaAndContains(t *testing.T) {
	square := []mgl32.Vec2{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	assert.InDelta(t, 4, SignedArea(square), 1e-6)
	assert.InDelta(t, -4, SignedArea(reversed(square)), 1e-6)

	assert.True(t, ContainsPoint(square, mgl32.Vec2{1, 1}))
	assert.False(t, ContainsPoint(square, mgl32.Vec2{3, 1}))
}

func TestShapesClassifiesHoles(t *testing.T) {
	f := loadTestFont(t)

	shapes := Shapes(f, "o", 1, 12)
	require.Len(t, shapes, 1)
	require.Len(t, shapes[0].Holes, 1)

	assert.Greater(t, SignedArea(shapes[0].Outer), float32(0))
	assert.Less(t, SignedArea(shapes[0].Holes[0]), float32(0))
	// scale = size / resolution
	assert.InDelta(t, 0.36, SignedArea(shapes[0].Outer), 1e-5)
}

func TestShapesLayout(t *testing.T) {
	f := loadTestFont(t)

	shapes := Shapes(f, "l l", 1, 12)
	require.Len(t, shapes, 2)
	minX := func(s Shape) float32 {
		m := s.Outer[0].X()
		for _, p := range s.Outer {
			m = min(m, p.X())
		}
		return m
	}
	assert.InDelta(t, 0, minX(shapes[0]), 1e-6)
	assert.InDelta(t, 0.55, minX(shapes[1]), 1e-6)

	lines := Shapes(f, "l\nl", 0.5, 12)
	require.Len(t, lines, 2)
	minY := func(s Shape) float32 {
		m := s.Outer[0].Y()
		for _, p := range s.Outer {
			m = min(m, p.Y())
		}
		return m
	}
	assert.InDelta(t, 0, minX(lines[1]), 1e-6)
	assert.InDelta(t, -1050*0.5/1000, minY(lines[1]), 1e-6)
}

func TestShapesMissingGlyph(t *testing.T) {
	f := loadTestFont(t)
	assert.Empty(t, Shapes(f, "xyz", 1, 12))
}

func TestParseDetectsFormat(t *testing.T) {
	f, err := Parse([]byte(testTypeface))
	require.NoError(t, err)
	assert.IsType(t, &TypefaceFont{}, f)

	_, err = Parse([]byte("not a font"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDefaultFont(t *testing.T) {
	f, err := DefaultFont()
	require.NoError(t, err)
	assert.Greater(t, f.Resolution(), float32(0))
	assert.Greater(t, f.LineHeight(), float32(0))

	g, ok := f.Glyph('o')
	require.True(t, ok)
	assert.Greater(t, g.Advance, float32(0))

	shapes := Shapes(f, "o", 1, 12)
	require.Len(t, shapes, 1)
	assert.Len(t, shapes[0].Holes, 1)

	twoLines := Shapes(f, "B\nC", 0.5, 12)
	require.Len(t, twoLines, 2)
}
