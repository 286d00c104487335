package text

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// OutlineFont reads glyph outlines from a TrueType or OpenType font. Outlines
// are loaded at one pixel per font unit so coordinates stay in font units.
type OutlineFont struct {
	font *sfnt.Font
	ppem fixed.Int26_6

	resolution float32
	lineHeight float32

	mu     sync.Mutex
	buf    sfnt.Buffer
	glyphs map[rune]glyphEntry
}

type glyphEntry struct {
	glyph Glyph
	ok    bool
}

// ParseOutline parses sfnt data (TTF, OTF).
func ParseOutline(data []byte) (*OutlineFont, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse outline font: %w", err)
	}
	upem := int(f.UnitsPerEm())
	o := &OutlineFont{
		font:       f,
		ppem:       fixed.I(upem),
		resolution: float32(upem),
		glyphs:     make(map[rune]glyphEntry),
	}

	bounds, err := f.Bounds(&o.buf, o.ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("parse outline font: bounds: %w", err)
	}
	o.lineHeight = fromFixed(bounds.Max.Y - bounds.Min.Y)
	if post := f.PostTable(); post != nil {
		o.lineHeight += float32(post.UnderlineThickness)
	}
	return o, nil
}

func (o *OutlineFont) Resolution() float32 { return o.resolution }

func (o *OutlineFont) LineHeight() float32 { return o.lineHeight }

// Glyph is safe for concurrent use.
func (o *OutlineFont) Glyph(r rune) (Glyph, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e, ok := o.glyphs[r]; ok {
		return e.glyph, e.ok
	}
	g, ok := o.loadGlyph(r)
	o.glyphs[r] = glyphEntry{glyph: g, ok: ok}
	return g, ok
}

func (o *OutlineFont) loadGlyph(r rune) (Glyph, bool) {
	idx, err := o.font.GlyphIndex(&o.buf, r)
	if err != nil || idx == 0 {
		return Glyph{}, false
	}
	advance, err := o.font.GlyphAdvance(&o.buf, idx, o.ppem, font.HintingNone)
	if err != nil {
		return Glyph{}, false
	}
	segs, err := o.font.LoadGlyph(&o.buf, idx, o.ppem, nil)
	if err != nil {
		return Glyph{}, false
	}

	// sfnt flips Y to point down; paths keep font space.
	pt := func(p fixed.Point26_6) (float32, float32) {
		return fromFixed(p.X), -fromFixed(p.Y)
	}
	path := &Path{}
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			path.MoveTo(pt(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			path.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(s.Args[0])
			x, y := pt(s.Args[1])
			path.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := pt(s.Args[0])
			c2x, c2y := pt(s.Args[1])
			x, y := pt(s.Args[2])
			path.CubicTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	return Glyph{Path: path, Advance: fromFixed(advance)}, true
}

func fromFixed(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
