package text

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type typefaceGlyph struct {
	Ha float32 `json:"ha"`
	O  string  `json:"o"`
}

type typefaceDocument struct {
	FamilyName  string                   `json:"familyName"`
	Resolution  float32                  `json:"resolution"`
	Glyphs      map[string]typefaceGlyph `json:"glyphs"`
	BoundingBox struct {
		XMin float32 `json:"xMin"`
		XMax float32 `json:"xMax"`
		YMin float32 `json:"yMin"`
		YMax float32 `json:"yMax"`
	} `json:"boundingBox"`
	UnderlineThickness float32 `json:"underlineThickness"`
}

// TypefaceFont is a font in the typeface JSON format: per glyph an advance
// ("ha") and an outline string of m/l/q/b commands.
type TypefaceFont struct {
	Family string

	resolution float32
	lineHeight float32
	glyphs     map[rune]Glyph
}

// ParseTypeface decodes a typeface JSON document and parses every outline.
func ParseTypeface(data []byte) (*TypefaceFont, error) {
	var doc typefaceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse typeface font: %w", err)
	}
	if doc.Resolution <= 0 {
		return nil, fmt.Errorf("parse typeface font: invalid resolution %v", doc.Resolution)
	}
	if len(doc.Glyphs) == 0 {
		return nil, fmt.Errorf("parse typeface font: no glyphs")
	}

	f := &TypefaceFont{
		Family:     doc.FamilyName,
		resolution: doc.Resolution,
		lineHeight: doc.BoundingBox.YMax - doc.BoundingBox.YMin + doc.UnderlineThickness,
		glyphs:     make(map[rune]Glyph, len(doc.Glyphs)),
	}
	for key, g := range doc.Glyphs {
		r, size := utf8.DecodeRuneInString(key)
		if r == utf8.RuneError || size != len(key) {
			continue
		}
		path, err := parseOutline(g.O)
		if err != nil {
			return nil, fmt.Errorf("parse typeface font: glyph %q: %w", key, err)
		}
		f.glyphs[r] = Glyph{Path: path, Advance: g.Ha}
	}
	return f, nil
}

func (f *TypefaceFont) Resolution() float32 { return f.resolution }

func (f *TypefaceFont) LineHeight() float32 { return f.lineHeight }

func (f *TypefaceFont) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

// parseOutline reads the space separated command stream. Quadratic and
// cubic commands list the end point before the control points.
func parseOutline(o string) (*Path, error) {
	tokens := strings.Fields(o)
	path := &Path{}

	next := func(i *int, n int) ([]float32, error) {
		if *i+n > len(tokens) {
			return nil, fmt.Errorf("command at %d: want %d coordinates", *i-1, n)
		}
		out := make([]float32, n)
		for k := range out {
			v, err := strconv.ParseFloat(tokens[*i+k], 32)
			if err != nil {
				return nil, err
			}
			out[k] = float32(v)
		}
		*i += n
		return out, nil
	}

	for i := 0; i < len(tokens); {
		cmd := tokens[i]
		i++
		switch cmd {
		case "m":
			v, err := next(&i, 2)
			if err != nil {
				return nil, err
			}
			path.MoveTo(v[0], v[1])
		case "l":
			v, err := next(&i, 2)
			if err != nil {
				return nil, err
			}
			path.LineTo(v[0], v[1])
		case "q":
			v, err := next(&i, 4)
			if err != nil {
				return nil, err
			}
			path.QuadTo(v[2], v[3], v[0], v[1])
		case "b":
			v, err := next(&i, 6)
			if err != nil {
				return nil, err
			}
			path.CubicTo(v[2], v[3], v[4], v[5], v[0], v[1])
		case "z":
		default:
			return nil, fmt.Errorf("unknown command %q", cmd)
		}
	}
	return path, nil
}
