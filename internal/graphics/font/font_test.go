package font

import (
	"errors"
	"sync"
	"testing"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/gofont/goregular"
)

type atlasTexture struct{ w, h int }

func (t atlasTexture) ID() uint32  { return 3 }
func (t atlasTexture) Width() int  { return t.w }
func (t atlasTexture) Height() int { return t.h }

var (
	atlasOnce sync.Once
	testAtlas *Atlas
	atlasErr  error
)

func loadTestAtlas(t *testing.T) *Atlas {
	t.Helper()
	atlasOnce.Do(func() {
		testAtlas, atlasErr = BuildAtlas(goregular.TTF, 24)
	})
	if atlasErr != nil {
		t.Fatalf("BuildAtlas: %v", atlasErr)
	}
	return testAtlas
}

func newTestFont(t *testing.T) *Font {
	t.Helper()
	a := loadTestAtlas(t)
	f, err := New(a, atlasTexture{a.Image.Rect.Dx(), a.Image.Rect.Dy()})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestBuildAtlas(t *testing.T) {
	a := loadTestAtlas(t)
	if a.LineHeight <= 0 || a.Ascent <= 0 {
		t.Fatalf("metrics: line height %d ascent %d", a.LineHeight, a.Ascent)
	}
	h := a.Image.Rect.Dy()
	if h&(h-1) != 0 {
		t.Errorf("atlas height %d is not a power of two", h)
	}

	g, ok := a.Glyphs['A']
	if !ok || g.Width == 0 || g.Height == 0 || g.Advance == 0 {
		t.Fatalf("glyph A = %+v, %v", g, ok)
	}
	var covered bool
	for y := g.Y; y < g.Y+g.Height; y++ {
		for x := g.X; x < g.X+g.Width; x++ {
			c := a.Image.RGBAAt(x, y)
			if c.A > 0 {
				covered = true
				if c.R != 0xff || c.G != 0xff || c.B != 0xff {
					t.Fatalf("pixel (%d,%d) = %v, want white", x, y, c)
				}
			}
		}
	}
	if !covered {
		t.Error("glyph A has no coverage in the atlas")
	}

	space := a.Glyphs[' ']
	if space.Width != 0 || space.Advance == 0 {
		t.Errorf("space = %+v", space)
	}
	if _, ok := a.Glyphs['é']; !ok {
		t.Error("Latin-1 glyph missing")
	}
	for r, g := range a.Glyphs {
		if g.X < 0 || g.Y < 0 || g.X+g.Width > a.Image.Rect.Dx() || g.Y+g.Height > a.Image.Rect.Dy() {
			t.Fatalf("glyph %q outside atlas: %+v", r, g)
		}
	}
}

func TestBuildAtlasErrors(t *testing.T) {
	if _, err := BuildAtlas([]byte("not a font"), 16); err == nil {
		t.Error("garbage font accepted")
	}
	if _, err := BuildAtlas(goregular.TTF, 0); err == nil {
		t.Error("zero size accepted")
	}
	if _, err := LoadAtlas("does/not/exist.ttf", 16); err == nil {
		t.Error("missing file accepted")
	}
}

func TestNewRejectsInvalidAtlas(t *testing.T) {
	if _, err := New(nil, atlasTexture{}); !errors.Is(err, ErrInvalidAtlas) {
		t.Errorf("nil atlas err = %v", err)
	}
	if _, err := New(loadTestAtlas(t), nil); !errors.Is(err, ErrInvalidAtlas) {
		t.Errorf("nil texture err = %v", err)
	}
}

func TestDrawAddsOneQuadPerGlyph(t *testing.T) {
	f := newTestFont(t)
	f.SetColor(mgl32.Vec4{1, 0, 0, 1})
	b := batch.New(nil)
	b.SetPrimitive(batch.PrimitiveLines)

	if n := f.Draw(b, mgl32.Vec2{10, 10}, "a b"); n != 2 {
		t.Fatalf("quads = %d, want 2", n)
	}
	if b.GetVertexCount() != 8 || b.BucketCount() != 1 {
		t.Fatalf("vertices %d buckets %d", b.GetVertexCount(), b.BucketCount())
	}
	for state, buf := range b.Buckets() {
		if state.Texture != f.Texture() || state.Primitive != batch.PrimitiveTriangles {
			t.Fatalf("bucket state = %+v", state)
		}
		if buf.IndexCount() != 12 {
			t.Fatalf("indices = %d", buf.IndexCount())
		}
	}
	v, _ := b.GetVertex(0)
	if v.Color != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("vertex color = %v", v.Color)
	}
	for i := 0; i < b.GetVertexCount(); i++ {
		v, _ := b.GetVertex(i)
		if v.TexCoord.X() < 0 || v.TexCoord.X() > 1 || v.TexCoord.Y() < 0 || v.TexCoord.Y() > 1 {
			t.Fatalf("vertex %d uv %v outside [0,1]", i, v.TexCoord)
		}
	}
}

func TestDrawNewlineAndUnknownRunes(t *testing.T) {
	f := newTestFont(t)
	b := batch.New(nil)

	f.Draw(b, mgl32.Vec2{0, 0}, "x\nx")
	first, _ := b.GetVertex(0)
	second, _ := b.GetVertex(4)
	if second.Position.X() != first.Position.X() {
		t.Errorf("second line starts at x=%v, want %v", second.Position.X(), first.Position.X())
	}
	if got := second.Position.Y() - first.Position.Y(); got != float32(f.LineHeight()) {
		t.Errorf("line step = %v, want %d", got, f.LineHeight())
	}

	b.Clear()
	f.Draw(b, mgl32.Vec2{0, 0}, "世x")
	shifted, _ := b.GetVertex(0)
	b.Clear()
	f.Draw(b, mgl32.Vec2{0, 0}, " x")
	spaced, _ := b.GetVertex(0)
	if shifted.Position != spaced.Position {
		t.Errorf("unknown rune advanced to %v, want space advance %v", shifted.Position, spaced.Position)
	}
}

func TestMeasure(t *testing.T) {
	f := newTestFont(t)
	g := f.atlas.Glyphs
	w, h := f.Measure("ab\nabc")
	want := float32(g['a'].Advance + g['b'].Advance + g['c'].Advance)
	if w != want {
		t.Errorf("width = %v, want %v", w, want)
	}
	if h != float32(2*f.LineHeight()) {
		t.Errorf("height = %v, want %d", h, 2*f.LineHeight())
	}
	if w, _ := f.Measure(""); w != 0 {
		t.Errorf("empty width = %v", w)
	}
}
