package app

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/mathgl/mgl32"
)

// Sprite layers; each gets its own draw order.
const spriteLayers = 3

type sprite struct {
	pos      mgl32.Vec2
	size     float32
	color    mgl32.Vec4
	order    int
	additive bool
}

// scatterSprites places n sprites over a w x h area. The same seed always
// yields the same field.
func scatterSprites(n, w, h int, seed int64) []sprite {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sprite, n)
	for i := range out {
		size := 8 + rng.Float32()*24
		out[i] = sprite{
			pos:      mgl32.Vec2{rng.Float32() * float32(w), rng.Float32() * float32(h)},
			size:     size,
			color:    mgl32.Vec4{0.4 + 0.6*rng.Float32(), 0.4 + 0.6*rng.Float32(), 0.4 + 0.6*rng.Float32(), 0.85},
			order:    rng.Intn(spriteLayers),
			additive: rng.Intn(4) == 0,
		}
	}
	return out
}

// splitSprites cuts sprites into at most parts contiguous runs of similar size.
func splitSprites(sprites []sprite, parts int) [][]sprite {
	if parts < 1 {
		parts = 1
	}
	if len(sprites) == 0 {
		return nil
	}
	parts = min(parts, len(sprites))
	out := make([][]sprite, 0, parts)
	per := (len(sprites) + parts - 1) / parts
	for start := 0; start < len(sprites); start += per {
		out = append(out, sprites[start:min(start+per, len(sprites))])
	}
	return out
}

// addSprites appends one quad per sprite, switching draw order and blend
// mode per sprite and leaving the grouping to the batch.
func addSprites(b *batch.Batch, tex batch.Texture, sprites []sprite) {
	b.SetTexture(tex)
	b.SetPrimitive(batch.PrimitiveTriangles)
	for _, s := range sprites {
		b.SetDrawOrder(s.order)
		if s.additive {
			b.SetBlendFunc(batch.BlendSrcAlpha, batch.BlendOne)
		} else {
			b.SetBlendFunc(batch.BlendSrcAlpha, batch.BlendOneMinusSrcAlpha)
		}
		half := s.size / 2
		b.AddQuad(batch.Quad(s.pos.X()-half, s.pos.Y()-half, s.size, s.size,
			mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, s.color))
	}
}

// pulseQuad rewrites the alpha of the quad starting at global vertex first.
func pulseQuad(b *batch.Batch, first int, t float64) error {
	alpha := float32(0.55 + 0.45*math.Sin(t*4))
	for i := first; i < first+4; i++ {
		v, err := b.GetVertex(i)
		if err != nil {
			return err
		}
		v.Color[3] = alpha
		if err := b.ModifyVertex(i, v); err != nil {
			return err
		}
	}
	return nil
}

// checkerImage is the fallback sprite: a size x size checkerboard with
// cells x cells squares and a transparent circular cut-out border.
func checkerImage(size, cells int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := max(size/max(cells, 1), 1)
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
			if dx*dx+dy*dy > r*r {
				continue
			}
			c := color.RGBA{255, 255, 255, 255}
			if (x/cell+y/cell)%2 == 1 {
				c = color.RGBA{170, 170, 170, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
