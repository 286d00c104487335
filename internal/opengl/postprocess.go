package opengl

import (
	"errors"
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// ErrIncompleteTarget is returned when the driver rejects the scene target.
var ErrIncompleteTarget = errors.New("render target incomplete")

// framebufferError maps a CheckFramebufferStatus result to an error.
func framebufferError(status uint32) error {
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return nil
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return fmt.Errorf("%w: incomplete attachment", ErrIncompleteTarget)
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return fmt.Errorf("%w: missing attachment", ErrIncompleteTarget)
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return fmt.Errorf("%w: sample counts differ", ErrIncompleteTarget)
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return fmt.Errorf("%w: format combination unsupported", ErrIncompleteTarget)
	case 0:
		return fmt.Errorf("%w: status query failed", ErrIncompleteTarget)
	}
	return fmt.Errorf("%w: status 0x%x", ErrIncompleteTarget, status)
}

// RenderTarget is the off-screen framebuffer the scene is drawn into at
// drawing-buffer size. Resolve copies it onto the window framebuffer,
// scaling when the pixel ratio was capped below the window's own.
type RenderTarget struct {
	// Multisampled scene target
	FBO     uint32
	colorRB uint32
	depthRB uint32
	Width   int32
	Height  int32
	Samples int32

	// Single-sampled intermediate, only used when a multisampled target
	// must be scaled: multisample blits require equal rectangles.
	resolveFBO uint32
	resolveRB  uint32

	status uint32
}

func newRenderTarget(samples int) *RenderTarget {
	return &RenderTarget{Samples: int32(max(samples, 0))}
}

// Ensure (re)allocates the target when the size changed.
func (t *RenderTarget) Ensure(width, height int) {
	w, h := int32(max(width, 1)), int32(max(height, 1))
	if t.FBO != 0 && w == t.Width && h == t.Height {
		return
	}
	t.free()
	t.alloc(w, h)
}

func (t *RenderTarget) alloc(width, height int32) {
	t.Width = width
	t.Height = height

	gl.GenRenderbuffers(1, &t.colorRB)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.colorRB)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, t.Samples, gl.RGBA8, width, height)

	gl.GenRenderbuffers(1, &t.depthRB)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depthRB)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, t.Samples, gl.DEPTH24_STENCIL8, width, height)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	gl.GenFramebuffers(1, &t.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, t.colorRB)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, t.depthRB)
	t.status = gl.CheckFramebufferStatus(gl.FRAMEBUFFER)

	if t.Samples > 0 {
		gl.GenRenderbuffers(1, &t.resolveRB)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.resolveRB)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, width, height)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

		gl.GenFramebuffers(1, &t.resolveFBO)
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.resolveFBO)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, t.resolveRB)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (t *RenderTarget) free() {
	for _, fbo := range []*uint32{&t.FBO, &t.resolveFBO} {
		if *fbo != 0 {
			gl.DeleteFramebuffers(1, fbo)
			*fbo = 0
		}
	}
	for _, rb := range []*uint32{&t.colorRB, &t.depthRB, &t.resolveRB} {
		if *rb != 0 {
			gl.DeleteRenderbuffers(1, rb)
			*rb = 0
		}
	}
}

// Err reports why the driver rejected the last allocation, or nil.
func (t *RenderTarget) Err() error {
	if t.FBO == 0 {
		return fmt.Errorf("%w: not allocated", ErrIncompleteTarget)
	}
	return framebufferError(t.status)
}

// Resolve copies the target onto the default framebuffer of size dstW×dstH.
func (t *RenderTarget) Resolve(dstW, dstH int32) {
	src := t.FBO
	if t.Samples > 0 && (dstW != t.Width || dstH != t.Height) {
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.FBO)
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, t.resolveFBO)
		gl.BlitFramebuffer(0, 0, t.Width, t.Height, 0, 0, t.Width, t.Height, gl.COLOR_BUFFER_BIT, gl.NEAREST)
		src = t.resolveFBO
	}

	filter := uint32(gl.NEAREST)
	if dstW != t.Width || dstH != t.Height {
		filter = gl.LINEAR
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, src)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, t.Width, t.Height, 0, 0, dstW, dstH, gl.COLOR_BUFFER_BIT, filter)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Destroy frees all GPU resources owned by this object.
func (t *RenderTarget) Destroy() {
	t.free()
}
