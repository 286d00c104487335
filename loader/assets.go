package loader

import (
	"bytes"
	"fmt"
	"image"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"coffee-scene/scene"
	"coffee-scene/text"
)

// glbType is the binary glTF container, recognised by its "glTF" magic.
var glbType = filetype.NewType("glb", "model/gltf-binary")

func init() {
	filetype.AddMatcher(glbType, func(buf []byte) bool {
		return len(buf) >= 12 && string(buf[:4]) == "glTF"
	})
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// checkContent rejects payloads whose magic bytes do not match kind. Models
// and fonts may also be JSON (.gltf, typeface fonts).
func checkContent(kind Kind, data []byte) error {
	var ok bool
	switch kind {
	case KindTexture:
		ok = filetype.IsImage(data)
	case KindModel:
		ok = filetype.IsType(data, glbType) || looksLikeJSON(data)
	case KindFont:
		ok = filetype.IsFont(data) || looksLikeJSON(data)
	default:
		return nil
	}
	if ok {
		return nil
	}
	got := types.Unknown
	if t, err := filetype.Match(data); err == nil {
		got = t
	}
	return fmt.Errorf("%w: want %s, got %q", ErrUnexpectedContent, kind, got.MIME.Value)
}

// TextureLoader returns textures at once and fills their pixels when the
// image arrives.
type TextureLoader struct {
	m *Manager
}

func NewTextureLoader(m *Manager) *TextureLoader {
	return &TextureLoader{m: m}
}

// Load returns an empty texture for url. Sampling state such as FlipY or
// the wrap modes may be changed before the pixels land; they are honoured
// when the image is applied.
func (l *TextureLoader) Load(url string) *scene.Texture {
	tex, _ := l.LoadFuture(url)
	return tex
}

// LoadFuture is Load with access to the request's completion.
func (l *TextureLoader) LoadFuture(url string) (*scene.Texture, *Future) {
	tex := scene.NewTexture(url)
	f := l.m.Load(url, KindTexture,
		func(data []byte) (any, error) {
			return scene.DecodeImage(data)
		},
		func(v any) error {
			tex.SetImage(v.(image.Image))
			return nil
		},
	)
	return tex, f
}

// GLTFLoader decodes glTF and GLB models.
type GLTFLoader struct {
	m *Manager
}

func NewGLTFLoader(m *Manager) *GLTFLoader {
	return &GLTFLoader{m: m}
}

// Load decodes url on a worker and passes the result to onLoad inside Poll.
// An error from onLoad fails the request.
func (l *GLTFLoader) Load(url string, onLoad func(*scene.GLTFResult) error) *Future {
	return l.m.Load(url, KindModel,
		func(data []byte) (any, error) {
			return scene.DecodeGLTF(url, data)
		},
		func(v any) error {
			res := v.(*scene.GLTFResult)
			for _, w := range res.Warnings {
				l.m.logger.Warn("model warning", "url", url, "err", w)
			}
			if onLoad == nil {
				return nil
			}
			return onLoad(res)
		},
	)
}

// FontLoader parses typeface JSON and sfnt fonts.
type FontLoader struct {
	m *Manager
}

func NewFontLoader(m *Manager) *FontLoader {
	return &FontLoader{m: m}
}

func (l *FontLoader) Load(url string, onLoad func(text.Font) error) *Future {
	return l.m.Load(url, KindFont,
		func(data []byte) (any, error) {
			return text.Parse(data)
		},
		func(v any) error {
			if onLoad == nil {
				return nil
			}
			return onLoad(v.(text.Font))
		},
	)
}
