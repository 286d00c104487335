package opengl

import (
	"testing"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
)

func TestFramebufferError(t *testing.T) {
	assert.NoError(t, framebufferError(gl.FRAMEBUFFER_COMPLETE))

	for _, status := range []uint32{
		0,
		gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT,
		gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT,
		gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE,
		gl.FRAMEBUFFER_UNSUPPORTED,
		0x1234,
	} {
		assert.ErrorIs(t, framebufferError(status), ErrIncompleteTarget, "status 0x%x", status)
	}
}

func TestUnallocatedTargetIsAnError(t *testing.T) {
	target := newRenderTarget(4)
	assert.ErrorIs(t, target.Err(), ErrIncompleteTarget)
}
