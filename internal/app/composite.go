package app

import (
	"math"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/mathgl/mgl32"
)

// compositeFragmentShader samples the render target with a travelling
// wave and a tint.
const compositeFragmentShader = `#version 410 core
in vec4 v_color;
in vec2 v_texcoord;

uniform sampler2D u_texture;
uniform float u_time;
uniform vec4 u_tint;

out vec4 frag_color;

void main() {
	vec2 uv = v_texcoord + vec2(sin(v_texcoord.y * 12.0 + u_time * 3.0) * 0.01, 0.0);
	frag_color = v_color * u_tint * texture(u_texture, uv);
}
`

const (
	wheelSpokes = 24
	wheelDots   = 48
)

// addWheel draws a rotating wheel into a size x size square: a filled
// backdrop, spokes as lines and rim dots as points.
func addWheel(b *batch.Batch, size int, t float64) {
	s := float32(size)
	b.SetTexture(nil)
	b.SetPrimitive(batch.PrimitiveTriangles)
	b.SetDrawOrder(0)
	b.AddRect(0, 0, s, s, mgl32.Vec4{0.08, 0.1, 0.18, 1})

	center := mgl32.Vec2{s / 2, s / 2}
	radius := s * 0.45
	angle := float32(t)

	b.SetDrawOrder(1)
	b.SetPrimitive(batch.PrimitiveLines)
	for i := 0; i < wheelSpokes; i++ {
		a := angle + float32(i)*2*math.Pi/wheelSpokes
		tip := center.Add(mgl32.Vec2{cos(a), sin(a)}.Mul(radius))
		hue := float32(i) / wheelSpokes
		b.AddVertices([]batch.Vertex{
			batch.NewTexturedVertex(center.X(), center.Y(), 0, 0, mgl32.Vec4{1, 1, 1, 1}),
			batch.NewTexturedVertex(tip.X(), tip.Y(), 0, 0, mgl32.Vec4{hue, 1 - hue, 0.8, 1}),
		}, []uint32{0, 1})
	}

	b.SetPrimitive(batch.PrimitivePoints)
	dots := make([]batch.Vertex, wheelDots)
	indices := make([]uint32, wheelDots)
	for i := range dots {
		a := -angle + float32(i)*2*math.Pi/wheelDots
		p := center.Add(mgl32.Vec2{cos(a), sin(a)}.Mul(radius))
		dots[i] = batch.NewVertex(p.X(), p.Y())
		indices[i] = uint32(i)
	}
	b.AddVertices(dots, indices)
}

// presentQuad covers (x, y, w, h) with a render target. Targets are drawn
// with a top-left projection, so their rows are stored bottom-up and the
// quad samples v from 1 to 0.
func presentQuad(x, y, w, h float32) [4]batch.Vertex {
	return batch.Quad(x, y, w, h, mgl32.Vec2{0, 1}, mgl32.Vec2{1, 0}, batch.White)
}

func cos(a float32) float32 { return float32(math.Cos(float64(a))) }
func sin(a float32) float32 { return float32(math.Sin(float64(a))) }
