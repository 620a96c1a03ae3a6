package batch

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

type fakeTexture struct {
	id   uint32
	w, h int
}

func (t *fakeTexture) ID() uint32  { return t.id }
func (t *fakeTexture) Width() int  { return t.w }
func (t *fakeTexture) Height() int { return t.h }

type fakeShader struct{ id uint32 }

func (s *fakeShader) ID() uint32          { return s.id }
func (s *fakeShader) Uniforms() []Uniform { return nil }

type subUpload struct {
	offset   int
	vertices []Vertex
}

type fakeVBO struct {
	uploads    int
	subUploads []subUpload
	vertices   []Vertex
	indices    []uint32
	released   bool
}

func (v *fakeVBO) Upload(vertices []Vertex, indices []uint32) {
	v.uploads++
	v.vertices = append([]Vertex(nil), vertices...)
	v.indices = append([]uint32(nil), indices...)
}

func (v *fakeVBO) UploadSubRange(offset int, vertices []Vertex) {
	v.subUploads = append(v.subUploads, subUpload{offset, append([]Vertex(nil), vertices...)})
	copy(v.vertices[offset:], vertices)
}

func (v *fakeVBO) Release() { v.released = true }

type viewState struct {
	viewport [4]int
	proj     mgl32.Mat4
}

type fakeFBO struct {
	dev      *fakeDevice
	saved    []viewState
	binds    int
	released bool
	bindErr  error
}

func (f *fakeFBO) Bind(t Texture) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.binds++
	f.saved = append(f.saved, f.dev.view)
	f.dev.view = viewState{
		viewport: [4]int{0, 0, t.Width(), t.Height()},
		proj:     mgl32.Ortho(0, float32(t.Width()), float32(t.Height()), 0, -1, 1),
	}
	return nil
}

func (f *fakeFBO) Unbind() {
	n := len(f.saved) - 1
	f.dev.view = f.saved[n]
	f.saved = f.saved[:n]
}

func (f *fakeFBO) Release() { f.released = true }

type drawnBucket struct {
	state    RenderState
	vertices int
	indices  int
	resident bool
}

type drawCall struct {
	view    viewState
	buckets []drawnBucket
}

type fakeDevice struct {
	noVBO, noFBO bool
	vboErr       error
	fboErr       error
	renderErr    error

	view  viewState
	vbos  []*fakeVBO
	fbos  []*fakeFBO
	draws []drawCall
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		view: viewState{
			viewport: [4]int{0, 0, 800, 600},
			proj:     mgl32.Ortho(0, 800, 600, 0, -1, 1),
		},
	}
}

func (d *fakeDevice) IsSupported(f Feature) bool {
	switch f {
	case FeatureVertexBufferObjects:
		return !d.noVBO
	case FeatureFrameBufferObjects:
		return !d.noFBO
	}
	return false
}

func (d *fakeDevice) CreateVertexBufferObject() (VertexBufferObject, error) {
	if d.vboErr != nil {
		return nil, d.vboErr
	}
	v := &fakeVBO{}
	d.vbos = append(d.vbos, v)
	return v, nil
}

func (d *fakeDevice) CreateFrameBufferObject() (FrameBufferObject, error) {
	if d.fboErr != nil {
		return nil, d.fboErr
	}
	f := &fakeFBO{dev: d}
	d.fbos = append(d.fbos, f)
	return f, nil
}

func (d *fakeDevice) RenderBatch(b *Batch) error {
	call := drawCall{view: d.view}
	for state, buf := range b.Buckets() {
		call.buckets = append(call.buckets, drawnBucket{
			state:    state,
			vertices: buf.VertexCount(),
			indices:  buf.IndexCount(),
			resident: buf.Resident(),
		})
	}
	d.draws = append(d.draws, call)
	return d.renderErr
}

var errFake = errors.New("fake failure")

func quad(x, y float32) []Vertex {
	q := Quad(x, y, 10, 10, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, White)
	return q[:]
}
