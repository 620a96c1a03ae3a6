package font

import (
	"fmt"
	"image"
	"math"
	"os"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	atlasWidth = 512
	padding    = 1
)

// Glyph describes one rune's placement in the atlas and its metrics in pixels.
type Glyph struct {
	// Atlas rectangle, top-left origin.
	X, Y, Width, Height int
	// Offset of the bitmap's top-left corner from the pen position on the baseline.
	BearingX, BearingY int
	Advance            int
}

// Atlas is a baked glyph sheet. Pixels are white with alpha holding coverage.
type Atlas struct {
	Image      *image.RGBA
	Glyphs     map[rune]Glyph
	Ascent     int
	LineHeight int
}

// Charset is the set of runes baked into every atlas: printable ASCII and Latin-1.
func Charset() []rune {
	var runes []rune
	for r := rune(32); r <= 126; r++ {
		runes = append(runes, r)
	}
	for r := rune(160); r <= 255; r++ {
		runes = append(runes, r)
	}
	return runes
}

// LoadAtlas reads a TrueType/OpenType file and bakes it at sizePx.
func LoadAtlas(path string, sizePx int) (*Atlas, error) {
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return BuildAtlas(fontBytes, sizePx)
}

// BuildAtlas rasterizes Charset with the given font at sizePx pixels.
func BuildAtlas(fontBytes []byte, sizePx int) (*Atlas, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("font size %d: must be positive", sizePx)
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(sizePx), DPI: 72, Hinting: xfont.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	runes := Charset()
	glyphs := make(map[rune]Glyph, len(runes))

	// First pass: place glyphs in rows to find the atlas height.
	offsetX, offsetY, rowHeight := 0, 0, 0
	for _, r := range runes {
		dr, _, _, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		g := Glyph{
			Width:    dr.Dx(),
			Height:   dr.Dy(),
			BearingX: dr.Min.X,
			BearingY: -dr.Min.Y,
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}
		if g.Width > 0 && g.Height > 0 {
			if offsetX+g.Width+padding > atlasWidth {
				offsetX = 0
				offsetY += rowHeight + padding
				rowHeight = 0
			}
			g.X, g.Y = offsetX, offsetY
			offsetX += g.Width + padding
			rowHeight = max(rowHeight, g.Height)
		}
		glyphs[r] = g
	}
	atlasHeight := nextPowerOfTwo(offsetY + rowHeight + padding)

	// Second pass: copy coverage into the sheet.
	img := image.NewRGBA(image.Rect(0, 0, atlasWidth, atlasHeight))
	for r, g := range glyphs {
		if g.Width == 0 || g.Height == 0 {
			continue
		}
		dr, mask, maskp, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		for y := 0; y < dr.Dy(); y++ {
			for x := 0; x < dr.Dx(); x++ {
				_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
				i := img.PixOffset(g.X+x, g.Y+y)
				img.Pix[i+0] = 0xff
				img.Pix[i+1] = 0xff
				img.Pix[i+2] = 0xff
				img.Pix[i+3] = uint8(a >> 8)
			}
		}
	}

	m := face.Metrics()
	return &Atlas{
		Image:      img,
		Glyphs:     glyphs,
		Ascent:     m.Ascent.Round(),
		LineHeight: m.Height.Round(),
	}, nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
