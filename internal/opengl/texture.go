package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"coffee-scene/scene"
)

// UploadTexture uploads a scene.Texture to the GPU and sets its GLID and
// UploadedVersion. An already uploaded texture is updated in place.
// Call this from the main goroutine (OpenGL context must be current).
// Rows are uploaded as stored: any vertical flip already happened on the CPU.
func UploadTexture(tex *scene.Texture) error {
	if tex == nil {
		return fmt.Errorf("nil texture")
	}
	if !tex.Ready() {
		return fmt.Errorf("texture %q has no pixel data", tex.Name)
	}
	if len(tex.Pixels) < tex.Width*tex.Height*4 {
		return fmt.Errorf("texture %q: %d bytes for %dx%d RGBA", tex.Name, len(tex.Pixels), tex.Width, tex.Height)
	}

	if tex.GLID == 0 {
		gl.GenTextures(1, &tex.GLID)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.GLID)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(tex.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(tex.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	internal := int32(gl.RGBA8)
	if tex.ColorSpace == scene.ColorSpaceSRGB {
		internal = gl.SRGB8_ALPHA8
	}

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		internal,
		int32(tex.Width),
		int32(tex.Height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		unsafe.Pointer(&tex.Pixels[0]),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex.UploadedVersion = tex.Version
	return nil
}

func wrapMode(w scene.Wrap) int32 {
	switch w {
	case scene.WrapRepeat:
		return gl.REPEAT
	case scene.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

// DeleteTexture frees a previously uploaded GPU texture and zeroes its GLID.
func DeleteTexture(tex *scene.Texture) {
	if tex == nil || tex.GLID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.GLID)
	tex.GLID = 0
	tex.UploadedVersion = 0
}
