package batch

import "github.com/go-gl/mathgl/mgl32"

// QuadIndices triangulates a quad given in winding order.
var QuadIndices = []uint32{0, 1, 2, 0, 2, 3}

// AddQuad appends four vertices in winding order as two triangles.
func (b *Batch) AddQuad(q [4]Vertex) int {
	return b.AddVertices(q[:], QuadIndices)
}

// Quad builds an axis-aligned quad at (x, y) of size (w, h) in a top-left
// origin space, sampling the texture region uv0..uv1.
func Quad(x, y, w, h float32, uv0, uv1 mgl32.Vec2, color mgl32.Vec4) [4]Vertex {
	return [4]Vertex{
		NewTexturedVertex(x, y, uv0.X(), uv0.Y(), color),
		NewTexturedVertex(x+w, y, uv1.X(), uv0.Y(), color),
		NewTexturedVertex(x+w, y+h, uv1.X(), uv1.Y(), color),
		NewTexturedVertex(x, y+h, uv0.X(), uv1.Y(), color),
	}
}

// AddRect appends a solid rectangle covering the full texture.
func (b *Batch) AddRect(x, y, w, h float32, color mgl32.Vec4) int {
	return b.AddQuad(Quad(x, y, w, h, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, color))
}
