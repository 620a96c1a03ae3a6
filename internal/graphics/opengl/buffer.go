package opengl

import (
	"fmt"
	"unsafe"

	"x2d/internal/graphics/batch"
	"x2d/internal/logging"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Attribute locations bound before every program link.
const (
	attribPosition = 0
	attribColor    = 1
	attribTexCoord = 2
)

// vertexArray is a VAO with its vertex and index buffers, configured for the
// interleaved batch.Vertex layout.
type vertexArray struct {
	vao, vbo, ibo uint32
}

func newVertexArray() (vertexArray, error) {
	var va vertexArray
	gl.GenVertexArrays(1, &va.vao)
	gl.GenBuffers(1, &va.vbo)
	gl.GenBuffers(1, &va.ibo)
	if va.vao == 0 || va.vbo == 0 || va.ibo == 0 {
		va.release()
		return vertexArray{}, fmt.Errorf("%w: vertex array", ErrCreateObject)
	}

	gl.BindVertexArray(va.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ibo)

	gl.EnableVertexAttribArray(attribPosition)
	gl.VertexAttribPointerWithOffset(attribPosition, 2, gl.FLOAT, false, batch.VertexSize, batch.PositionOffset)
	gl.EnableVertexAttribArray(attribColor)
	gl.VertexAttribPointerWithOffset(attribColor, 4, gl.FLOAT, false, batch.VertexSize, batch.ColorOffset)
	gl.EnableVertexAttribArray(attribTexCoord)
	gl.VertexAttribPointerWithOffset(attribTexCoord, 2, gl.FLOAT, false, batch.VertexSize, batch.TexCoordOffset)

	gl.BindVertexArray(0)
	return va, nil
}

// fill replaces both buffers. The VAO must be bound.
func (va vertexArray) fill(vertices []batch.Vertex, indices []uint32, usage uint32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*batch.VertexSize, vertexPtr(vertices), usage)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, indexPtr(indices), usage)
}

func (va *vertexArray) release() {
	if va.vao != 0 {
		gl.DeleteVertexArrays(1, &va.vao)
	}
	if va.vbo != 0 {
		gl.DeleteBuffers(1, &va.vbo)
	}
	if va.ibo != 0 {
		gl.DeleteBuffers(1, &va.ibo)
	}
	*va = vertexArray{}
}

func vertexPtr(v []batch.Vertex) unsafe.Pointer {
	if len(v) == 0 {
		return nil
	}
	return gl.Ptr(v)
}

func indexPtr(i []uint32) unsafe.Pointer {
	if len(i) == 0 {
		return nil
	}
	return gl.Ptr(i)
}

// vertexBuffer is the GPU copy of one static bucket.
type vertexBuffer struct {
	dev      *Device
	va       vertexArray
	vertices int
	indices  int
}

// CreateVertexBufferObject allocates an empty GPU buffer pair.
func (d *Device) CreateVertexBufferObject() (batch.VertexBufferObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	va, err := newVertexArray()
	if err != nil {
		return nil, err
	}
	return &vertexBuffer{dev: d, va: va}, nil
}

func (b *vertexBuffer) Upload(vertices []batch.Vertex, indices []uint32) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	gl.BindVertexArray(b.va.vao)
	b.va.fill(vertices, indices, gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	b.vertices = len(vertices)
	b.indices = len(indices)
}

func (b *vertexBuffer) UploadSubRange(offset int, vertices []batch.Vertex) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if offset < 0 || offset+len(vertices) > b.vertices {
		logging.Logger().Warn("opengl: sub-range upload outside buffer",
			"offset", offset, "count", len(vertices), "size", b.vertices)
		return
	}
	if len(vertices) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.va.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, offset*batch.VertexSize, len(vertices)*batch.VertexSize, gl.Ptr(vertices))
}

func (b *vertexBuffer) Release() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	b.va.release()
	b.vertices, b.indices = 0, 0
}
