package opengl

import (
	"reflect"
	"testing"
	"time"

	"x2d/internal/graphics/batch"
)

func TestSamplerUnits(t *testing.T) {
	tex := stubTexture{id: 5}
	sampler := func(t batch.Texture) batch.Uniform {
		return batch.Uniform{Type: batch.UniformSampler2D, Texture: t}
	}
	tests := []struct {
		name     string
		uniforms []batch.Uniform
		want     []int32
	}{
		{"none", nil, []int32{}},
		{"no sampler", []batch.Uniform{{Type: batch.UniformFloat}, {Type: batch.UniformInt}}, []int32{-1, -1}},
		{"two textured", []batch.Uniform{sampler(tex), sampler(stubTexture{id: 6})}, []int32{1, 2}},
		{"nil texture", []batch.Uniform{sampler(nil)}, []int32{0}},
		{"mixed", []batch.Uniform{
			{Type: batch.UniformFloatMat4},
			sampler(tex),
			sampler(nil),
			{Type: batch.UniformIntVec2},
			sampler(tex),
		}, []int32{-1, 1, 0, -1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := samplerUnits(tt.uniforms)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("samplerUnits = %v, want %v", got, tt.want)
			}
		})
	}
}

type foreignVBO struct{}

func (foreignVBO) Upload([]batch.Vertex, []uint32)    {}
func (foreignVBO) UploadSubRange(int, []batch.Vertex) {}
func (foreignVBO) Release()                           {}

func TestResidentBuffer(t *testing.T) {
	d, other := &Device{}, &Device{}
	own := &vertexBuffer{dev: d}
	tests := []struct {
		name     string
		vbo      batch.VertexBufferObject
		resident bool
		want     bool
	}{
		{"uploaded", own, true, true},
		{"stale", own, false, false},
		{"no buffer", nil, true, false},
		{"other device", &vertexBuffer{dev: other}, true, false},
		{"other backend", foreignVBO{}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vb, ok := d.residentBuffer(tt.vbo, tt.resident)
			if ok != tt.want {
				t.Fatalf("residentBuffer ok = %v, want %v", ok, tt.want)
			}
			if ok && vb != own {
				t.Fatal("returned a different buffer")
			}
		})
	}
}

func TestUploadSubRangeChecksBoundsUnderDeviceLock(t *testing.T) {
	d := &Device{}
	vb := &vertexBuffer{dev: d, vertices: 4}

	d.mu.Lock()
	done := make(chan struct{})
	go func() {
		// Out of range: rejected before any GL call.
		vb.UploadSubRange(3, make([]batch.Vertex, 2))
		close(done)
	}()
	select {
	case <-done:
		d.mu.Unlock()
		t.Fatal("bounds check ran without the device lock")
	case <-time.After(20 * time.Millisecond):
	}
	d.mu.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("UploadSubRange did not return")
	}
}
