package renderer

import (
	"x2d/internal/graphics/opengl"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext provides shared context for all renderables
type RenderContext struct {
	Device *opengl.Device
	DT     float64
	Width  int
	Height int
	// Proj is the device projection for the current surface.
	Proj mgl32.Mat4
}

// Renderable interface defines the lifecycle for renderable features
type Renderable interface {
	Init() error
	Render(ctx RenderContext)
	Dispose()
	SetViewport(width, height int)
}

// Surface is the render target the renderer clears and resizes each frame.
type Surface interface {
	Clear(color mgl32.Vec4)
	Resize(width, height int)
	Projection() mgl32.Mat4
}
