package batch

import "cmp"

// BlendFunc is a blend factor applied to the source or destination color.
type BlendFunc int

const (
	BlendZero BlendFunc = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcAlphaSaturate
)

var blendNames = [...]string{
	"Zero", "One", "SrcColor", "OneMinusSrcColor", "SrcAlpha", "OneMinusSrcAlpha",
	"DstColor", "OneMinusDstColor", "DstAlpha", "OneMinusDstAlpha", "SrcAlphaSaturate",
}

func (b BlendFunc) String() string {
	if b < 0 || int(b) >= len(blendNames) {
		return "BlendFunc(?)"
	}
	return blendNames[b]
}

// Primitive is the topology used to interpret a bucket's indices.
type Primitive int

const (
	PrimitivePoints Primitive = iota
	PrimitiveLines
	PrimitiveTriangles
)

func (p Primitive) String() string {
	switch p {
	case PrimitivePoints:
		return "Points"
	case PrimitiveLines:
		return "Lines"
	case PrimitiveTriangles:
		return "Triangles"
	}
	return "Primitive(?)"
}

// RenderState identifies one draw-call configuration. It is a grouping key:
// every vertex added under equal states lands in the same bucket.
type RenderState struct {
	DrawOrder int
	Primitive Primitive
	Texture   Texture
	SrcBlend  BlendFunc
	DstBlend  BlendFunc
	Shader    Shader
}

// DefaultState is the cursor of a fresh or cleared Batch.
func DefaultState() RenderState {
	return RenderState{
		Primitive: PrimitiveTriangles,
		SrcBlend:  BlendSrcAlpha,
		DstBlend:  BlendOneMinusSrcAlpha,
	}
}

// Compare orders states by draw order, primitive, texture identity, source
// blend, destination blend and shader identity, stopping at the first
// difference. It returns 0 when all keys match.
func Compare(a, b RenderState) int {
	if c := cmp.Compare(a.DrawOrder, b.DrawOrder); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Primitive, b.Primitive); c != 0 {
		return c
	}
	if c := cmp.Compare(textureID(a.Texture), textureID(b.Texture)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SrcBlend, b.SrcBlend); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DstBlend, b.DstBlend); c != 0 {
		return c
	}
	return cmp.Compare(shaderID(a.Shader), shaderID(b.Shader))
}

// Less reports whether a sorts before b.
func Less(a, b RenderState) bool {
	return Compare(a, b) < 0
}

func textureID(t Texture) uint32 {
	if t == nil {
		return 0
	}
	return t.ID()
}

func shaderID(s Shader) uint32 {
	if s == nil {
		return 0
	}
	return s.ID()
}
