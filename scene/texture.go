package scene

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapRepeat
	WrapMirroredRepeat
)

type ColorSpace int

const (
	// ColorSpaceLinear marks data textures such as noise that are sampled as-is.
	ColorSpaceLinear ColorSpace = iota
	// ColorSpaceSRGB marks color textures that are decoded to linear on sampling.
	ColorSpaceSRGB
)

// Texture holds CPU-side pixel data for a 2D texture.
// GLID is set by the OpenGL backend after upload; do not access directly.
type Texture struct {
	Name   string
	Width  int
	Height int
	// Pixels in RGBA8 format (4 bytes per pixel, row-major, top-to-bottom).
	Pixels []byte

	WrapS, WrapT Wrap
	// FlipY flips the image vertically when pixels are assigned so that v=0
	// samples the bottom row. glTF textures expect it off.
	FlipY      bool
	ColorSpace ColorSpace

	// Version increases every time Pixels or sampling state change; the
	// backend re-uploads when it differs from UploadedVersion.
	Version         uint32
	UploadedVersion uint32
	// GLID is the OpenGL texture object ID, set by opengl.UploadTexture.
	GLID uint32
}

// NewTexture returns an empty texture with the defaults of an image loader:
// clamped, flipped, linear. Pixels arrive later through SetImage.
func NewTexture(name string) *Texture {
	return &Texture{
		Name:  name,
		FlipY: true,
	}
}

// Ready reports whether pixel data is present.
func (t *Texture) Ready() bool {
	return len(t.Pixels) > 0 && t.Width > 0 && t.Height > 0
}

// SetWrap sets both wrap modes and schedules a re-upload.
func (t *Texture) SetWrap(s, tt Wrap) {
	t.WrapS, t.WrapT = s, tt
	t.Version++
}

// SetImage converts img to RGBA8, honouring FlipY, and schedules a re-upload.
func (t *Texture) SetImage(img image.Image) {
	var rgba *image.RGBA
	if t.FlipY {
		rgba = transform.FlipV(img)
	} else {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	t.Width = rgba.Bounds().Dx()
	t.Height = rgba.Bounds().Dy()
	t.Pixels = rgba.Pix
	t.Version++
}

// DecodeImage decodes PNG, JPEG or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

