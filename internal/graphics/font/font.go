package font

import (
	"errors"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidAtlas = errors.New("font: invalid atlas")

// Font draws text from an Atlas whose image was uploaded as texture.
type Font struct {
	atlas   *Atlas
	texture batch.Texture
	color   mgl32.Vec4
}

func New(atlas *Atlas, texture batch.Texture) (*Font, error) {
	if atlas == nil || atlas.Image == nil || len(atlas.Glyphs) == 0 || texture == nil {
		return nil, ErrInvalidAtlas
	}
	return &Font{atlas: atlas, texture: texture, color: batch.White}, nil
}

// SetColor sets the tint of subsequently drawn text.
func (f *Font) SetColor(c mgl32.Vec4) { f.color = c }

// Color returns the current tint.
func (f *Font) Color() mgl32.Vec4 { return f.color }

// Texture returns the atlas texture.
func (f *Font) Texture() batch.Texture { return f.texture }

// LineHeight returns the distance between baselines in pixels.
func (f *Font) LineHeight() int { return f.atlas.LineHeight }

// Draw appends one textured quad per visible glyph of text to b, with pos
// the top-left corner of the first line. It leaves the batch texture set
// to the atlas and the primitive set to triangles, and returns the number
// of quads added.
func (f *Font) Draw(b *batch.Batch, pos mgl32.Vec2, text string) int {
	b.SetTexture(f.texture)
	b.SetPrimitive(batch.PrimitiveTriangles)

	aw := float32(f.atlas.Image.Rect.Dx())
	ah := float32(f.atlas.Image.Rect.Dy())
	x := pos.X()
	baseline := pos.Y() + float32(f.atlas.Ascent)
	quads := 0
	for _, r := range text {
		if r == '\n' {
			x = pos.X()
			baseline += float32(f.atlas.LineHeight)
			continue
		}
		g, ok := f.atlas.Glyphs[r]
		if !ok {
			x += float32(f.atlas.Glyphs[' '].Advance)
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			uv0 := mgl32.Vec2{float32(g.X) / aw, float32(g.Y) / ah}
			uv1 := mgl32.Vec2{float32(g.X+g.Width) / aw, float32(g.Y+g.Height) / ah}
			b.AddQuad(batch.Quad(
				x+float32(g.BearingX), baseline-float32(g.BearingY),
				float32(g.Width), float32(g.Height),
				uv0, uv1, f.color,
			))
			quads++
		}
		x += float32(g.Advance)
	}
	return quads
}

// Measure returns the width of the widest line and the total height of text.
func (f *Font) Measure(text string) (w, h float32) {
	var line float32
	lines := 1
	for _, r := range text {
		if r == '\n' {
			w = max(w, line)
			line = 0
			lines++
			continue
		}
		g, ok := f.atlas.Glyphs[r]
		if !ok {
			g = f.atlas.Glyphs[' ']
		}
		line += float32(g.Advance)
	}
	w = max(w, line)
	return w, float32(lines * f.atlas.LineHeight)
}
