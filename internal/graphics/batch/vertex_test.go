package batch

import (
	"testing"
	"unsafe"
)

func TestVertexLayout(t *testing.T) {
	var v Vertex
	if got := unsafe.Sizeof(v); got != VertexSize {
		t.Fatalf("sizeof(Vertex) = %d, want %d", got, VertexSize)
	}
	if got := unsafe.Offsetof(v.Position); got != PositionOffset {
		t.Errorf("position offset = %d, want %d", got, PositionOffset)
	}
	if got := unsafe.Offsetof(v.Color); got != ColorOffset {
		t.Errorf("color offset = %d, want %d", got, ColorOffset)
	}
	if got := unsafe.Offsetof(v.TexCoord); got != TexCoordOffset {
		t.Errorf("texcoord offset = %d, want %d", got, TexCoordOffset)
	}
}

func TestNewVertexDefaults(t *testing.T) {
	v := NewVertex(3, 4)
	if v.Color != White {
		t.Fatalf("color = %v, want white", v.Color)
	}
	if v.Position.X() != 3 || v.Position.Y() != 4 {
		t.Fatalf("position = %v", v.Position)
	}
}
