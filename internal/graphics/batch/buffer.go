package batch

// GeometryBuffer holds the vertices and indices of one bucket. Indices are
// local to the buffer. When the owning batch is static the buffer also owns
// a GPU copy.
type GeometryBuffer struct {
	vertices []Vertex
	indices  []uint32

	vbo VertexBufferObject
	// uploaded is false once the CPU arrays grow past the last full upload.
	uploaded bool
}

// Vertices returns the buffer's vertices. The slice must not be modified.
func (g *GeometryBuffer) Vertices() []Vertex { return g.vertices }

// Indices returns the buffer's local indices. The slice must not be modified.
func (g *GeometryBuffer) Indices() []uint32 { return g.indices }

// VertexCount returns the number of vertices in the buffer.
func (g *GeometryBuffer) VertexCount() int { return len(g.vertices) }

// IndexCount returns the number of indices in the buffer.
func (g *GeometryBuffer) IndexCount() int { return len(g.indices) }

// VBO returns the GPU buffer pair, or nil if the buffer was never made static.
func (g *GeometryBuffer) VBO() VertexBufferObject { return g.vbo }

// Resident reports whether the GPU copy matches the CPU arrays. Backends
// draw resident buffers from the VBO and everything else from the CPU arrays.
func (g *GeometryBuffer) Resident() bool { return g.vbo != nil && g.uploaded }

func (g *GeometryBuffer) append(vertices []Vertex, indices []uint32) {
	base := uint32(len(g.vertices))
	g.vertices = append(g.vertices, vertices...)
	for _, idx := range indices {
		g.indices = append(g.indices, base+idx)
	}
	g.uploaded = false
}

func (g *GeometryBuffer) upload(dev Device) error {
	if g.vbo == nil {
		vbo, err := dev.CreateVertexBufferObject()
		if err != nil {
			return err
		}
		g.vbo = vbo
	}
	g.vbo.Upload(g.vertices, g.indices)
	g.uploaded = true
	return nil
}

func (g *GeometryBuffer) set(local int, v Vertex) {
	g.vertices[local] = v
	if g.Resident() {
		g.vbo.UploadSubRange(local, g.vertices[local:local+1])
	}
}

func (g *GeometryBuffer) release() {
	if g.vbo != nil {
		g.vbo.Release()
		g.vbo = nil
	}
	g.uploaded = false
	g.vertices = nil
	g.indices = nil
}
