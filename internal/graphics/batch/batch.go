package batch

import (
	"fmt"
	"iter"
	"sort"

	"x2d/internal/logging"

	"github.com/go-gl/mathgl/mgl32"
)

// bucket pairs a state key with its geometry.
type bucket struct {
	state  RenderState
	buffer *GeometryBuffer
}

// span records where one AddVertices call landed so global vertex indices
// (insertion order across all buckets) can be mapped back to a bucket.
type span struct {
	global int
	local  int
	count  int
	buffer *GeometryBuffer
}

// Batch groups geometry by RenderState so each distinct state costs one
// draw call. A Batch is not safe for concurrent use; build it on one
// goroutine and hand it to the device thread for drawing.
type Batch struct {
	device Device

	// buckets is kept sorted by Compare.
	buckets []bucket
	last    int

	spans       []span
	vertexCount int

	state    RenderState
	proj     mgl32.Mat4
	isStatic bool

	fbo    FrameBufferObject
	target Texture
}

// New returns an empty batch submitting to dev. dev may be nil for batches
// that are only built, never drawn.
func New(dev Device) *Batch {
	return &Batch{
		device: dev,
		state:  DefaultState(),
		proj:   mgl32.Ident4(),
		last:   -1,
	}
}

// Device returns the device the batch submits to.
func (b *Batch) Device() Device { return b.device }

// SetProjectionMatrix sets the matrix applied after the device projection
// on the next draw.
func (b *Batch) SetProjectionMatrix(m mgl32.Mat4) { b.proj = m }

// GetProjectionMatrix returns the batch matrix.
func (b *Batch) GetProjectionMatrix() mgl32.Mat4 { return b.proj }

// SetBlendFunc sets the blend factors for subsequent insertions.
func (b *Batch) SetBlendFunc(src, dst BlendFunc) {
	b.state.SrcBlend = src
	b.state.DstBlend = dst
}

// GetBlendFunc returns the current blend factors.
func (b *Batch) GetBlendFunc() (src, dst BlendFunc) {
	return b.state.SrcBlend, b.state.DstBlend
}

// SetShader sets the shader for subsequent insertions. nil selects the
// backend's built-in program.
func (b *Batch) SetShader(s Shader) { b.state.Shader = s }

// GetShader returns the current shader.
func (b *Batch) GetShader() Shader { return b.state.Shader }

// SetTexture sets the texture for subsequent insertions.
func (b *Batch) SetTexture(t Texture) { b.state.Texture = t }

// GetTexture returns the current texture.
func (b *Batch) GetTexture() Texture { return b.state.Texture }

// SetPrimitive sets the topology for subsequent insertions.
func (b *Batch) SetPrimitive(p Primitive) { b.state.Primitive = p }

// GetPrimitive returns the current topology.
func (b *Batch) GetPrimitive() Primitive { return b.state.Primitive }

// SetDrawOrder sets the primary sort key for subsequent insertions.
// Lower orders are drawn first.
func (b *Batch) SetDrawOrder(order int) { b.state.DrawOrder = order }

// GetDrawOrder returns the current draw order.
func (b *Batch) GetDrawOrder() int { return b.state.DrawOrder }

// State returns the current state cursor.
func (b *Batch) State() RenderState { return b.state }

// AddVertices appends vertices and indices to the bucket of the current
// state. Indices are relative to vertices and get offset by the bucket's
// existing vertex count. It returns the global index of the first added
// vertex, or -1 if nothing was added.
func (b *Batch) AddVertices(vertices []Vertex, indices []uint32) int {
	if len(vertices) == 0 {
		return -1
	}
	for _, idx := range indices {
		if uint64(idx) >= uint64(len(vertices)) {
			logging.Logger().Warn("batch: rejected vertices",
				"err", ErrInvalidIndices, "index", idx, "vertices", len(vertices))
			return -1
		}
	}

	buf := b.bufferFor(b.state)
	local := buf.VertexCount()
	buf.append(vertices, indices)

	start := b.vertexCount
	b.spans = append(b.spans, span{
		global: start,
		local:  local,
		count:  len(vertices),
		buffer: buf,
	})
	b.vertexCount += len(vertices)
	return start
}

// ModifyVertex overwrites the vertex at global index i. Static buckets get
// the single vertex re-uploaded.
func (b *Batch) ModifyVertex(i int, v Vertex) error {
	buf, local, ok := b.locate(i)
	if !ok {
		logging.Logger().Warn("batch: modify vertex", "err", ErrIndexOutOfRange, "index", i, "count", b.vertexCount)
		return ErrIndexOutOfRange
	}
	buf.set(local, v)
	return nil
}

// GetVertex returns the vertex at global index i.
func (b *Batch) GetVertex(i int) (Vertex, error) {
	buf, local, ok := b.locate(i)
	if !ok {
		logging.Logger().Warn("batch: get vertex", "err", ErrIndexOutOfRange, "index", i, "count", b.vertexCount)
		return Vertex{}, ErrIndexOutOfRange
	}
	return buf.vertices[local], nil
}

// GetVertexCount returns the number of vertices across all buckets.
func (b *Batch) GetVertexCount() int { return b.vertexCount }

// BucketCount returns the number of distinct states in the batch.
func (b *Batch) BucketCount() int { return len(b.buckets) }

// Buckets yields every bucket in RenderState order.
func (b *Batch) Buckets() iter.Seq2[RenderState, *GeometryBuffer] {
	return func(yield func(RenderState, *GeometryBuffer) bool) {
		for _, bk := range b.buckets {
			if !yield(bk.state, bk.buffer) {
				return
			}
		}
	}
}

// Draw submits the batch. If a render target is set, the device viewport
// and projection are redirected to it for the duration of the call and
// restored afterwards, also when submission fails.
func (b *Batch) Draw() error {
	if b.device == nil {
		return ErrNoDevice
	}
	if b.target != nil && b.fbo != nil {
		if err := b.fbo.Bind(b.target); err != nil {
			return fmt.Errorf("bind render target: %w", err)
		}
		defer b.fbo.Unbind()
	}
	return b.device.RenderBatch(b)
}

// Clear drops all geometry and GPU buffers and resets the state cursor.
// The render target and the static flag are kept.
func (b *Batch) Clear() {
	for _, bk := range b.buckets {
		bk.buffer.release()
	}
	b.buckets = nil
	b.last = -1
	b.spans = nil
	b.vertexCount = 0
	b.state = DefaultState()
}

// MakeStatic uploads every bucket into GPU buffers. Later calls re-upload
// everything. Without vertex buffer object support the batch stays
// immediate and MakeStatic returns nil.
func (b *Batch) MakeStatic() error {
	if b.device == nil || !b.device.IsSupported(FeatureVertexBufferObjects) {
		logging.Logger().Debug("batch: vertex buffer objects unsupported, drawing from client memory")
		return nil
	}
	b.isStatic = true
	for _, bk := range b.buckets {
		if err := bk.buffer.upload(b.device); err != nil {
			return fmt.Errorf("create vertex buffer: %w", err)
		}
	}
	logging.Logger().Debug("batch: uploaded", "buckets", len(b.buckets), "vertices", b.vertexCount)
	return nil
}

// IsStatic reports whether MakeStatic took effect.
func (b *Batch) IsStatic() bool { return b.isStatic }

// RenderToTexture makes subsequent draws render into t. The frame buffer is
// created on the first call and reused afterwards. A nil texture detaches
// the target.
func (b *Batch) RenderToTexture(t Texture) error {
	if t == nil {
		b.target = nil
		return nil
	}
	if b.device == nil {
		return ErrNoDevice
	}
	if !b.device.IsSupported(FeatureFrameBufferObjects) {
		return ErrFeatureUnsupported
	}
	if b.fbo == nil {
		fbo, err := b.device.CreateFrameBufferObject()
		if err != nil {
			return fmt.Errorf("create frame buffer: %w", err)
		}
		b.fbo = fbo
	}
	b.target = t
	return nil
}

// RenderTarget returns the texture draws are redirected to, if any.
func (b *Batch) RenderTarget() Texture { return b.target }

// Release frees all GPU resources owned by the batch. Textures and shaders
// it references are left alone.
func (b *Batch) Release() {
	b.Clear()
	if b.fbo != nil {
		b.fbo.Release()
		b.fbo = nil
	}
	b.target = nil
}

// bufferFor returns the bucket for s, creating it in sorted position.
func (b *Batch) bufferFor(s RenderState) *GeometryBuffer {
	if b.last >= 0 && Compare(b.buckets[b.last].state, s) == 0 {
		return b.buckets[b.last].buffer
	}
	i := sort.Search(len(b.buckets), func(i int) bool {
		return Compare(b.buckets[i].state, s) >= 0
	})
	if i < len(b.buckets) && Compare(b.buckets[i].state, s) == 0 {
		b.last = i
		return b.buckets[i].buffer
	}
	buf := &GeometryBuffer{}
	b.buckets = append(b.buckets, bucket{})
	copy(b.buckets[i+1:], b.buckets[i:])
	b.buckets[i] = bucket{state: s, buffer: buf}
	b.last = i
	return buf
}

// locate maps a global vertex index to its buffer and local offset.
func (b *Batch) locate(i int) (*GeometryBuffer, int, bool) {
	if i < 0 || i >= b.vertexCount {
		return nil, 0, false
	}
	n := sort.Search(len(b.spans), func(n int) bool {
		return b.spans[n].global > i
	}) - 1
	sp := b.spans[n]
	return sp.buffer, sp.local + (i - sp.global), true
}
