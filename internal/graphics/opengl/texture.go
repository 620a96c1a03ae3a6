package opengl

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/gl/v4.1-core/gl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrOutOfBounds = errors.New("opengl: region outside texture")
	ErrReleased    = errors.New("opengl: texture released")
)

// Texture is an RGBA8 2D texture. New textures sample with FilterNearest and
// WrapClampToEdge.
type Texture struct {
	dev    *Device
	id     uint32
	width  int
	height int
	filter Filter
	wrap   Wrap
}

var _ batch.Texture = (*Texture)(nil)

func (t *Texture) ID() uint32  { return t.id }
func (t *Texture) Width() int  { return t.width }
func (t *Texture) Height() int { return t.height }

// CreateTexture uploads img as a new texture.
func (d *Device) CreateTexture(img image.Image) (*Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploadTexture(toRGBA(img))
}

// CreateRenderTarget allocates an empty w x h texture to render into.
func (d *Device) CreateRenderTarget(w, h int) (*Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render target %dx%d: %w", w, h, ErrOutOfBounds)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploadTexture(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// LoadTexture decodes an image file (PNG, JPEG, BMP or WebP) into a texture.
func (d *Device) LoadTexture(path string) (*Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	return d.CreateTexture(img)
}

func (d *Device) uploadTexture(rgba *image.RGBA) (*Texture, error) {
	if rgba.Rect.Empty() {
		return nil, fmt.Errorf("empty texture: %w", ErrOutOfBounds)
	}
	t := &Texture{
		dev:    d,
		width:  rgba.Rect.Dx(),
		height: rgba.Rect.Dy(),
		filter: FilterNearest,
		wrap:   WrapClampToEdge,
	}
	gl.GenTextures(1, &t.id)
	if t.id == 0 {
		return nil, fmt.Errorf("%w: texture", ErrCreateObject)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, t.wrap.glEnum())
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, t.wrap.glEnum())
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, t.filter.glEnum())
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, t.filter.glEnum())
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(t.width),
		int32(t.height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(rgba.Pix),
	)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

// SetFiltering changes how the texture is sampled.
func (t *Texture) SetFiltering(f Filter) {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	t.filter = f
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, f.glEnum())
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, f.glEnum())
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Filtering returns the current filter.
func (t *Texture) Filtering() Filter { return t.filter }

// SetWrapping changes how out-of-range coordinates are resolved.
func (t *Texture) SetWrapping(w Wrap) {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	t.wrap = w
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, w.glEnum())
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, w.glEnum())
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Wrapping returns the current wrap mode.
func (t *Texture) Wrapping() Wrap { return t.wrap }

// UpdatePixels overwrites the region of the texture at (x, y) with img.
func (t *Texture) UpdatePixels(x, y int, img image.Image) error {
	rgba := toRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if !fits(x, y, w, h, t.width, t.height) {
		return fmt.Errorf("update %dx%d at (%d,%d) of %dx%d: %w", w, h, x, y, t.width, t.height, ErrOutOfBounds)
	}
	if w == 0 || h == 0 {
		return nil
	}
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Pixels reads the texture back into client memory.
func (t *Texture) Pixels() (*image.RGBA, error) {
	if t.id == 0 {
		return nil, ErrReleased
	}
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return img, nil
}

// Release deletes the GL texture. Batches still referencing it must be
// cleared first.
func (t *Texture) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	t.release()
}

func (t *Texture) release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// toRGBA returns img as a tightly packed RGBA image with origin (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

func fits(x, y, w, h, width, height int) bool {
	return x >= 0 && y >= 0 && x+w <= width && y+h <= height
}
