package batch

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func bucketList(b *Batch) []*GeometryBuffer {
	var out []*GeometryBuffer
	for _, buf := range b.Buckets() {
		out = append(out, buf)
	}
	return out
}

func TestTwoQuadsSameStateShareBucket(t *testing.T) {
	t1 := &fakeTexture{id: 1, w: 64, h: 64}
	b := New(newFakeDevice())

	b.SetTexture(t1)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(t1)
	b.AddVertices(quad(20, 0), QuadIndices)

	if b.BucketCount() != 1 {
		t.Fatalf("buckets = %d, want 1", b.BucketCount())
	}
	buf := bucketList(b)[0]
	if buf.VertexCount() != 8 || buf.IndexCount() != 12 {
		t.Fatalf("got %d vertices / %d indices, want 8 / 12", buf.VertexCount(), buf.IndexCount())
	}
	want := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}
	for i, idx := range buf.Indices() {
		if idx != want[i] {
			t.Fatalf("indices = %v, want %v", buf.Indices(), want)
		}
	}
}

func TestAddVerticesCountsAndLocalIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	textures := []Texture{nil, &fakeTexture{id: 1}, &fakeTexture{id: 2}}

	for run := 0; run < 50; run++ {
		b := New(nil)
		expected := map[uint32]int{}
		for call := 0; call < 20; call++ {
			tex := textures[rng.Intn(len(textures))]
			b.SetTexture(tex)
			n := 1 + rng.Intn(6)
			verts := make([]Vertex, n)
			indices := make([]uint32, 3*n)
			for i := range indices {
				indices[i] = uint32(rng.Intn(n))
			}
			b.AddVertices(verts, indices)
			expected[textureID(tex)] += n
		}

		total := 0
		for state, buf := range b.Buckets() {
			if got := buf.VertexCount(); got != expected[textureID(state.Texture)] {
				t.Fatalf("run %d: bucket %d has %d vertices, want %d", run, textureID(state.Texture), got, expected[textureID(state.Texture)])
			}
			for _, idx := range buf.Indices() {
				if int(idx) >= buf.VertexCount() {
					t.Fatalf("run %d: index %d escapes bucket of %d vertices", run, idx, buf.VertexCount())
				}
			}
			total += buf.VertexCount()
		}
		if total != b.GetVertexCount() {
			t.Fatalf("run %d: bucket sum %d != GetVertexCount %d", run, total, b.GetVertexCount())
		}
	}
}

func TestDrawOrderControlsEmission(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)

	b.SetDrawOrder(1)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetDrawOrder(0)
	b.AddVertices(quad(0, 0), QuadIndices)

	if err := b.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	got := dev.draws[0].buckets
	if len(got) != 2 {
		t.Fatalf("emitted %d buckets, want 2", len(got))
	}
	if got[0].state.DrawOrder != 0 || got[1].state.DrawOrder != 1 {
		t.Fatalf("emission order = [%d %d], want [0 1]", got[0].state.DrawOrder, got[1].state.DrawOrder)
	}
}

func TestIdenticalStatesInsertedSeparatelyShareBucket(t *testing.T) {
	t1 := &fakeTexture{id: 1}
	t2 := &fakeTexture{id: 2}
	b := New(nil)

	b.SetTexture(t1)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(t2)
	b.SetPrimitive(PrimitiveLines)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(t1)
	b.SetPrimitive(PrimitiveTriangles)
	b.AddVertices(quad(0, 0), QuadIndices)

	if b.BucketCount() != 2 {
		t.Fatalf("buckets = %d, want 2", b.BucketCount())
	}
	for state, buf := range b.Buckets() {
		if state.Texture == Texture(t1) && buf.VertexCount() != 8 {
			t.Fatalf("t1 bucket has %d vertices, want 8", buf.VertexCount())
		}
	}
}

func TestStateChangesDoNotAlterExistingBuckets(t *testing.T) {
	b := New(nil)
	b.AddVertices(quad(0, 0), QuadIndices)

	b.SetBlendFunc(BlendOne, BlendOne)
	b.SetShader(&fakeShader{id: 9})
	b.SetTexture(&fakeTexture{id: 3})
	b.SetPrimitive(PrimitivePoints)
	b.SetDrawOrder(5)

	for state := range b.Buckets() {
		if state != DefaultState() {
			t.Fatalf("existing bucket state changed to %+v", state)
		}
	}
	src, dst := b.GetBlendFunc()
	if src != BlendOne || dst != BlendOne || b.GetDrawOrder() != 5 || b.GetPrimitive() != PrimitivePoints {
		t.Fatal("cursor getters do not reflect setters")
	}
}

func TestModifyVertexRoundTrip(t *testing.T) {
	b := New(nil)
	b.SetTexture(&fakeTexture{id: 2})
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(&fakeTexture{id: 1})
	b.AddVertices(quad(5, 5), QuadIndices)
	b.SetTexture(&fakeTexture{id: 2})
	b.AddVertices(quad(9, 9), QuadIndices)

	for i := 0; i < b.GetVertexCount(); i++ {
		v := NewVertex(float32(i), float32(-i))
		if err := b.ModifyVertex(i, v); err != nil {
			t.Fatalf("ModifyVertex(%d): %v", i, err)
		}
		got, err := b.GetVertex(i)
		if err != nil {
			t.Fatalf("GetVertex(%d): %v", i, err)
		}
		if got != v {
			t.Fatalf("GetVertex(%d) = %+v, want %+v", i, got, v)
		}
	}
}

func TestGlobalIndexFollowsInsertionOrder(t *testing.T) {
	b := New(nil)
	b.SetDrawOrder(1)
	first := b.AddVertices([]Vertex{NewVertex(1, 1)}, nil)
	b.SetDrawOrder(0)
	second := b.AddVertices([]Vertex{NewVertex(2, 2)}, nil)

	if first != 0 || second != 1 {
		t.Fatalf("returned indices %d, %d; want 0, 1", first, second)
	}
	v, _ := b.GetVertex(0)
	if v.Position != (mgl32.Vec2{1, 1}) {
		t.Fatalf("GetVertex(0) = %v, want the first inserted vertex", v.Position)
	}
}

func TestOutOfRangeIndexIsNoop(t *testing.T) {
	b := New(nil)
	b.AddVertices(quad(0, 0), QuadIndices)
	before, _ := b.GetVertex(3)

	for _, i := range []int{-1, 4, 100} {
		if err := b.ModifyVertex(i, NewVertex(7, 7)); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("ModifyVertex(%d) err = %v, want ErrIndexOutOfRange", i, err)
		}
		if _, err := b.GetVertex(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("GetVertex(%d) err = %v, want ErrIndexOutOfRange", i, err)
		}
	}
	after, _ := b.GetVertex(3)
	if before != after || b.GetVertexCount() != 4 {
		t.Fatal("out-of-range calls modified the batch")
	}
}

func TestAddVerticesRejectsBadInput(t *testing.T) {
	b := New(nil)
	if got := b.AddVertices(nil, []uint32{0}); got != -1 {
		t.Fatalf("empty add returned %d, want -1", got)
	}
	if got := b.AddVertices(quad(0, 0), []uint32{0, 1, 4}); got != -1 {
		t.Fatalf("add with index 4 of 4 vertices returned %d, want -1", got)
	}
	// Must not wrap to a negative int where int is 32 bits.
	if got := b.AddVertices(quad(0, 0), []uint32{0, 1, 0xFFFFFFFF}); got != -1 {
		t.Fatalf("add with index 0xFFFFFFFF returned %d, want -1", got)
	}
	if b.GetVertexCount() != 0 || b.BucketCount() != 0 {
		t.Fatal("rejected adds must not create buckets")
	}
}

func TestMakeStaticKeepsCPUView(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(&fakeTexture{id: 4})
	b.AddVertices(quad(3, 3), QuadIndices)

	before := make([]Vertex, b.GetVertexCount())
	for i := range before {
		before[i], _ = b.GetVertex(i)
	}
	if err := b.MakeStatic(); err != nil {
		t.Fatalf("MakeStatic: %v", err)
	}
	if !b.IsStatic() {
		t.Fatal("IsStatic() = false after MakeStatic")
	}
	if b.GetVertexCount() != len(before) {
		t.Fatalf("vertex count changed from %d to %d", len(before), b.GetVertexCount())
	}
	for i, want := range before {
		if got, _ := b.GetVertex(i); got != want {
			t.Fatalf("vertex %d changed by MakeStatic", i)
		}
	}
	if len(dev.vbos) != 2 {
		t.Fatalf("created %d VBOs, want one per bucket", len(dev.vbos))
	}
	for _, buf := range b.Buckets() {
		if !buf.Resident() {
			t.Fatal("bucket not resident after MakeStatic")
		}
	}
}

func TestMakeStaticTwiceReuploadsAll(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.MakeStatic(); err != nil {
		t.Fatal(err)
	}
	b.AddVertices(quad(1, 1), QuadIndices)
	b.SetTexture(&fakeTexture{id: 8})
	b.AddVertices(quad(2, 2), QuadIndices)

	for _, buf := range b.Buckets() {
		if buf.Resident() {
			t.Fatal("buckets changed after MakeStatic must not be resident")
		}
	}
	if err := b.MakeStatic(); err != nil {
		t.Fatal(err)
	}
	if len(dev.vbos) != 2 {
		t.Fatalf("created %d VBOs, want existing pair reused plus one new", len(dev.vbos))
	}
	if dev.vbos[0].uploads != 2 || len(dev.vbos[0].vertices) != 8 {
		t.Fatalf("first VBO uploads=%d vertices=%d, want 2 uploads of 8", dev.vbos[0].uploads, len(dev.vbos[0].vertices))
	}
}

func TestMakeStaticUnsupportedFallsBack(t *testing.T) {
	dev := newFakeDevice()
	dev.noVBO = true
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)

	if err := b.MakeStatic(); err != nil {
		t.Fatalf("MakeStatic without VBOs should degrade silently, got %v", err)
	}
	if b.IsStatic() || len(dev.vbos) != 0 {
		t.Fatal("batch should stay immediate without VBO support")
	}
	if err := b.Draw(); err != nil {
		t.Fatal(err)
	}
	if dev.draws[0].buckets[0].resident {
		t.Fatal("fallback bucket drawn as resident")
	}
}

func TestMakeStaticCreationFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.vboErr = errFake
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)

	if err := b.MakeStatic(); !errors.Is(err, errFake) {
		t.Fatalf("MakeStatic err = %v, want wrapped errFake", err)
	}
}

func TestModifyVertexOnStaticUploadsSubRange(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	b.SetTexture(&fakeTexture{id: 1})
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.MakeStatic(); err != nil {
		t.Fatal(err)
	}

	v := NewVertex(42, 42)
	if err := b.ModifyVertex(6, v); err != nil {
		t.Fatal(err)
	}
	var target *fakeVBO
	for _, vbo := range dev.vbos {
		if len(vbo.subUploads) > 0 {
			target = vbo
		}
	}
	if target == nil {
		t.Fatal("no sub-range upload issued")
	}
	su := target.subUploads[0]
	if su.offset != 2 || len(su.vertices) != 1 || su.vertices[0] != v {
		t.Fatalf("sub upload = %+v, want offset 2 with the new vertex", su)
	}
	if target.uploads != 1 {
		t.Fatal("ModifyVertex must not re-upload the whole buffer")
	}
}

func TestClearResets(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	b.SetDrawOrder(3)
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.MakeStatic(); err != nil {
		t.Fatal(err)
	}

	b.Clear()
	if b.GetVertexCount() != 0 || b.BucketCount() != 0 {
		t.Fatal("Clear left geometry behind")
	}
	if !dev.vbos[0].released {
		t.Fatal("Clear did not release the GPU buffer")
	}
	if b.State() != DefaultState() {
		t.Fatal("Clear did not reset the state cursor")
	}
	if got := b.AddVertices(quad(0, 0), QuadIndices); got != 0 {
		t.Fatalf("AddVertices after Clear returned %d, want 0", got)
	}
	if b.BucketCount() != 1 || b.GetVertexCount() != 4 {
		t.Fatal("AddVertices after Clear did not create a fresh bucket")
	}
}

func TestRenderToTextureRestoresView(t *testing.T) {
	dev := newFakeDevice()
	before := dev.view
	target := &fakeTexture{id: 5, w: 128, h: 64}

	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.RenderToTexture(target); err != nil {
		t.Fatalf("RenderToTexture: %v", err)
	}
	if err := b.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	inside := dev.draws[0].view
	if inside.viewport != [4]int{0, 0, 128, 64} {
		t.Fatalf("viewport during draw = %v, want target size", inside.viewport)
	}
	if !inside.proj.ApproxEqual(mgl32.Ortho(0, 128, 64, 0, -1, 1)) {
		t.Fatal("projection during draw does not span the target")
	}
	if dev.view != before {
		t.Fatalf("view after draw = %+v, want restored %+v", dev.view, before)
	}
}

func TestRenderToTextureRestoresViewOnFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.renderErr = errFake
	before := dev.view

	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.RenderToTexture(&fakeTexture{id: 5, w: 32, h: 32}); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); !errors.Is(err, errFake) {
		t.Fatalf("Draw err = %v, want errFake", err)
	}
	if dev.view != before {
		t.Fatal("view not restored after failed submission")
	}
}

func TestRenderToTextureReusesFrameBuffer(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	if err := b.RenderToTexture(&fakeTexture{id: 1, w: 8, h: 8}); err != nil {
		t.Fatal(err)
	}
	if err := b.RenderToTexture(&fakeTexture{id: 2, w: 16, h: 16}); err != nil {
		t.Fatal(err)
	}
	if len(dev.fbos) != 1 {
		t.Fatalf("created %d frame buffers, want 1", len(dev.fbos))
	}

	b.Clear()
	if b.RenderTarget() == nil || dev.fbos[0].released {
		t.Fatal("Clear must keep the render target")
	}
	b.Release()
	if !dev.fbos[0].released || b.RenderTarget() != nil {
		t.Fatal("Release must free the frame buffer")
	}
	b.Release()
}

func TestRenderToTextureErrors(t *testing.T) {
	dev := newFakeDevice()
	dev.noFBO = true
	b := New(dev)
	if err := b.RenderToTexture(&fakeTexture{id: 1}); !errors.Is(err, ErrFeatureUnsupported) {
		t.Fatalf("err = %v, want ErrFeatureUnsupported", err)
	}

	dev = newFakeDevice()
	dev.fboErr = errFake
	b = New(dev)
	if err := b.RenderToTexture(&fakeTexture{id: 1}); !errors.Is(err, errFake) {
		t.Fatalf("err = %v, want wrapped errFake", err)
	}
	if b.RenderTarget() != nil {
		t.Fatal("failed RenderToTexture must not set a target")
	}
}

func TestDrawWithoutTargetUsesCurrentView(t *testing.T) {
	dev := newFakeDevice()
	b := New(dev)
	b.AddVertices(quad(0, 0), QuadIndices)
	if err := b.RenderToTexture(&fakeTexture{id: 1, w: 4, h: 4}); err != nil {
		t.Fatal(err)
	}
	if err := b.RenderToTexture(nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); err != nil {
		t.Fatal(err)
	}
	if dev.draws[0].view.viewport != [4]int{0, 0, 800, 600} {
		t.Fatal("detached batch should draw to the current target")
	}
	if dev.fbos[0].binds != 0 {
		t.Fatal("frame buffer bound after detaching")
	}
}

func TestDrawWithoutDevice(t *testing.T) {
	b := New(nil)
	if err := b.Draw(); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Draw err = %v, want ErrNoDevice", err)
	}
	if err := b.MakeStatic(); err != nil || b.IsStatic() {
		t.Fatal("MakeStatic without a device should be a silent no-op")
	}
}

func TestAddRect(t *testing.T) {
	b := New(nil)
	b.AddRect(10, 20, 30, 40, mgl32.Vec4{1, 0, 0, 1})
	v2, _ := b.GetVertex(2)
	if v2.Position != (mgl32.Vec2{40, 60}) || v2.TexCoord != (mgl32.Vec2{1, 1}) {
		t.Fatalf("bottom-right vertex = %+v", v2)
	}
}

func BenchmarkAddQuadSingleState(b *testing.B) {
	bt := New(nil)
	q := Quad(0, 0, 16, 16, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, White)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bt.AddQuad(q)
	}
}

func BenchmarkAddQuadAlternatingTextures(b *testing.B) {
	bt := New(nil)
	textures := []Texture{&fakeTexture{id: 1}, &fakeTexture{id: 2}, &fakeTexture{id: 3}, &fakeTexture{id: 4}}
	q := Quad(0, 0, 16, 16, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, White)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bt.SetTexture(textures[i%len(textures)])
		bt.AddQuad(q)
	}
}
