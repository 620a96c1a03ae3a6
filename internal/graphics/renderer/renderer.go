package renderer

import (
	"fmt"

	"x2d/internal/graphics/opengl"
	"x2d/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Renderer orchestrates rendering via renderable features
type Renderer struct {
	renderables []Renderable
	device      *opengl.Device
	surface     Surface
	clearColor  mgl32.Vec4
	profiler    *profiling.Profiler

	width, height int
}

// NewRenderer initialises every renderable in order. If one fails, those
// already initialised are disposed and the error is returned.
func NewRenderer(dev *opengl.Device, clearColor mgl32.Vec4, width, height int, rs ...Renderable) (*Renderer, error) {
	return newRenderer(dev, dev, clearColor, width, height, rs)
}

func newRenderer(dev *opengl.Device, surface Surface, clearColor mgl32.Vec4, width, height int, rs []Renderable) (*Renderer, error) {
	r := &Renderer{
		device:     dev,
		surface:    surface,
		clearColor: clearColor,
		width:      width,
		height:     height,
	}

	// Initialize all renderables
	for i, rd := range rs {
		if err := rd.Init(); err != nil {
			for j := i - 1; j >= 0; j-- {
				rs[j].Dispose()
			}
			return nil, fmt.Errorf("init renderable %d: %w", i, err)
		}
		rd.SetViewport(width, height)
		r.renderables = append(r.renderables, rd)
	}
	return r, nil
}

// SetProfiler attaches a profiler that times each frame.
func (r *Renderer) SetProfiler(p *profiling.Profiler) { r.profiler = p }

// Render clears the surface and renders every feature in order.
func (r *Renderer) Render(dt float64) {
	defer r.profiler.Track("renderer.Render")()

	r.surface.Clear(r.clearColor)

	ctx := RenderContext{
		Device: r.device,
		DT:     dt,
		Width:  r.width,
		Height: r.height,
		Proj:   r.surface.Projection(),
	}
	for _, renderable := range r.renderables {
		renderable.Render(ctx)
	}
}

// Dispose cleans up all renderables in reverse order
func (r *Renderer) Dispose() {
	for i := len(r.renderables) - 1; i >= 0; i-- {
		r.renderables[i].Dispose()
	}
	r.renderables = nil
}

// UpdateViewport resizes the surface and notifies every renderable.
func (r *Renderer) UpdateViewport(width, height int) {
	r.width, r.height = width, height
	r.surface.Resize(width, height)
	for _, renderable := range r.renderables {
		renderable.SetViewport(width, height)
	}
}

// GetViewport returns the current surface size.
func (r *Renderer) GetViewport() (width, height int) {
	return r.width, r.height
}
