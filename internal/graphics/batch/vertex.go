package batch

import "github.com/go-gl/mathgl/mgl32"

// Vertex is the interleaved layout consumed by every backend:
// position (2 floats), color (4 floats), texCoord (2 floats), no padding.
// Do not reorder the fields.
type Vertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec4
	TexCoord mgl32.Vec2
}

// Byte layout of Vertex.
const (
	VertexSize     = 8 * 4
	PositionOffset = 0
	ColorOffset    = 2 * 4
	TexCoordOffset = 6 * 4
)

// White is the default vertex color.
var White = mgl32.Vec4{1, 1, 1, 1}

// NewVertex returns a white vertex at (x, y) with a zero texture coordinate.
func NewVertex(x, y float32) Vertex {
	return Vertex{Position: mgl32.Vec2{x, y}, Color: White}
}

// NewTexturedVertex returns a vertex at (x, y) sampling (u, v) tinted by color.
func NewTexturedVertex(x, y, u, v float32, color mgl32.Vec4) Vertex {
	return Vertex{
		Position: mgl32.Vec2{x, y},
		Color:    color,
		TexCoord: mgl32.Vec2{u, v},
	}
}
