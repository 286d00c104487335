// Package text turns strings into polygon shapes using either typeface JSON
// fonts or TrueType/OpenType fonts.
package text

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/h2non/filetype"
)

// ErrUnknownFormat is returned by Parse for data that is neither a typeface
// JSON document nor an sfnt font.
var ErrUnknownFormat = errors.New("unknown font format")

// Glyph is one character outline. Advance and the path are in font units.
type Glyph struct {
	Path    *Path
	Advance float32
}

// Font provides glyph outlines in font units.
type Font interface {
	// Resolution is the number of font units per em.
	Resolution() float32
	// LineHeight is the distance between baselines in font units.
	LineHeight() float32
	Glyph(r rune) (Glyph, bool)
}

// Parse detects the font kind from its content.
func Parse(data []byte) (Font, error) {
	if filetype.IsFont(data) {
		return ParseOutline(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseTypeface(data)
	}
	return nil, fmt.Errorf("parse font: %w", ErrUnknownFormat)
}

var (
	defaultOnce sync.Once
	defaultFont Font
	defaultErr  error
)

// DefaultFont is Latin Modern Roman, used when no font asset is available.
func DefaultFont() (Font, error) {
	defaultOnce.Do(func() {
		defaultFont, defaultErr = ParseOutline(lmroman10regular.TTF)
	})
	return defaultFont, defaultErr
}
