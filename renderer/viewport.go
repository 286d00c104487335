package renderer

import "github.com/chewxy/math32"

// Viewport tracks the logical canvas size and the pixel ratio it is drawn
// at. The drawing buffer is the logical size scaled by the ratio.
type Viewport struct {
	Width, Height int
	pixelRatio    float32
	maxPixelRatio float32
}

// NewViewport caps every later pixel ratio at maxPixelRatio; values <= 0
// leave it uncapped.
func NewViewport(width, height int, maxPixelRatio float32) Viewport {
	v := Viewport{maxPixelRatio: maxPixelRatio, pixelRatio: 1}
	v.SetSize(width, height)
	return v
}

func (v *Viewport) SetSize(width, height int) {
	v.Width = max(width, 0)
	v.Height = max(height, 0)
}

// SetPixelRatio stores min(ratio, max). Non-positive or NaN ratios reset it
// to 1.
func (v *Viewport) SetPixelRatio(ratio float32) {
	if !(ratio > 0) || math32.IsInf(ratio, 1) {
		ratio = 1
	}
	if v.maxPixelRatio > 0 {
		ratio = min(ratio, v.maxPixelRatio)
	}
	v.pixelRatio = ratio
}

func (v *Viewport) PixelRatio() float32 { return v.pixelRatio }

// DrawingBufferSize is the framebuffer size in device pixels, rounded down.
func (v *Viewport) DrawingBufferSize() (int, int) {
	w := int(math32.Floor(float32(v.Width) * v.pixelRatio))
	h := int(math32.Floor(float32(v.Height) * v.pixelRatio))
	return w, h
}

// Aspect is width over height, or 1 for a degenerate viewport.
func (v *Viewport) Aspect() float32 {
	if v.Width == 0 || v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}
