package opengl

import (
	"fmt"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type savedView struct {
	framebuffer uint32
	viewport    [4]int32
	ortho       Ortho
}

// frameBuffer redirects drawing into a texture. Binds nest; each Unbind
// restores the view saved by the matching Bind.
type frameBuffer struct {
	dev   *Device
	id    uint32
	saved []savedView
}

// CreateFrameBufferObject allocates a framebuffer with no attachment.
func (d *Device) CreateFrameBufferObject() (batch.FrameBufferObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var id uint32
	gl.GenFramebuffers(1, &id)
	if id == 0 {
		return nil, fmt.Errorf("%w: framebuffer", ErrCreateObject)
	}
	return &frameBuffer{dev: d, id: id}, nil
}

func (f *frameBuffer) Bind(target batch.Texture) error {
	d := f.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	var prev int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)

	gl.BindFramebuffer(gl.FRAMEBUFFER, f.id)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, target.ID(), 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev))
		return fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}

	f.saved = append(f.saved, savedView{
		framebuffer: uint32(prev),
		viewport:    d.viewport,
		ortho:       d.ortho,
	})
	d.setViewport(0, 0, int32(target.Width()), int32(target.Height()))
	d.ortho = TopLeftOrtho(target.Width(), target.Height())
	return nil
}

func (f *frameBuffer) Unbind() {
	d := f.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(f.saved) == 0 {
		return
	}
	s := f.saved[len(f.saved)-1]
	f.saved = f.saved[:len(f.saved)-1]

	gl.BindFramebuffer(gl.FRAMEBUFFER, s.framebuffer)
	v := s.viewport
	d.setViewport(v[0], v[1], v[2], v[3])
	d.ortho = s.ortho
}

func (f *frameBuffer) Release() {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	if f.id != 0 {
		gl.DeleteFramebuffers(1, &f.id)
		f.id = 0
	}
}
