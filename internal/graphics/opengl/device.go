package opengl

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"x2d/internal/graphics/batch"
	"x2d/internal/logging"
	"x2d/internal/profiling"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Profiler counter names recorded by RenderBatch.
const (
	CounterDrawCalls        = "draw_calls"
	CounterBuckets          = "buckets"
	CounterStreamedVertices = "streamed_vertices"
)

var (
	ErrIncompleteFramebuffer = errors.New("opengl: framebuffer incomplete")
	ErrCreateObject          = errors.New("opengl: object creation failed")
)

// Options configures a Device.
type Options struct {
	// Width and Height size the initial viewport and orthographic projection.
	Width, Height int
	// DisabledFeatures report unsupported regardless of the driver.
	DisabledFeatures []batch.Feature
	// Profiler receives draw call counters. May be nil.
	Profiler *profiling.Profiler
}

// Ortho describes an orthographic projection volume.
type Ortho struct {
	Left, Right, Bottom, Top, Near, Far float32
}

// TopLeftOrtho spans (0,0) at the top-left to (w,h) at the bottom-right.
func TopLeftOrtho(w, h int) Ortho {
	return Ortho{Left: 0, Right: float32(w), Bottom: float32(h), Top: 0, Near: -1, Far: 1}
}

// Matrix returns the projection matrix for o.
func (o Ortho) Matrix() mgl32.Mat4 {
	return mgl32.Ortho(o.Left, o.Right, o.Bottom, o.Top, o.Near, o.Far)
}

// Device implements batch.Device on an OpenGL 4.1 core context. All GL work
// goes through one mutex; the context must be current on the calling thread.
type Device struct {
	mu sync.Mutex

	version      string
	renderer     string
	major, minor int
	disabled     map[batch.Feature]bool
	profiler     *profiling.Profiler

	viewport [4]int32
	ortho    Ortho

	builtin *Shader
	white   *Texture
	stream  vertexArray
}

var _ batch.Device = (*Device)(nil)

// New initialises GL function pointers and the device's built-in resources.
func New(opts Options) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init gl: %w", err)
	}

	d := &Device{
		version:  gl.GoStr(gl.GetString(gl.VERSION)),
		renderer: gl.GoStr(gl.GetString(gl.RENDERER)),
		disabled: make(map[batch.Feature]bool, len(opts.DisabledFeatures)),
		profiler: opts.Profiler,
	}
	major, minor, err := parseVersion(d.version)
	if err != nil {
		return nil, err
	}
	d.major, d.minor = major, minor
	for _, f := range opts.DisabledFeatures {
		d.disabled[f] = true
	}

	d.builtin, err = d.compileShader(DefaultVertexShader, DefaultFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("built-in program: %w", err)
	}
	d.builtin.use()
	if loc, ok := d.builtin.location(samplerUniform); ok {
		gl.Uniform1i(loc, 0)
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	d.white, err = d.uploadTexture(white)
	if err != nil {
		d.builtin.release()
		return nil, fmt.Errorf("white texture: %w", err)
	}

	d.stream, err = newVertexArray()
	if err != nil {
		d.builtin.release()
		d.white.release()
		return nil, fmt.Errorf("stream buffers: %w", err)
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	d.setViewport(0, 0, int32(opts.Width), int32(opts.Height))
	d.ortho = TopLeftOrtho(opts.Width, opts.Height)

	logging.Logger().Info("opengl: device ready",
		"version", d.version, "renderer", d.renderer,
		"vbo", d.IsSupported(batch.FeatureVertexBufferObjects),
		"fbo", d.IsSupported(batch.FeatureFrameBufferObjects))
	return d, nil
}

// Version returns the raw GL_VERSION string.
func (d *Device) Version() string { return d.version }

// Renderer returns the GL_RENDERER string.
func (d *Device) Renderer() string { return d.renderer }

// IsSupported reports whether the driver provides f and it was not disabled.
// Buffer objects need GL 1.5, framebuffer objects GL 3.0.
func (d *Device) IsSupported(f batch.Feature) bool {
	if d.disabled[f] {
		return false
	}
	switch f {
	case batch.FeatureVertexBufferObjects:
		return versionAtLeast(d.major, d.minor, 1, 5)
	case batch.FeatureFrameBufferObjects:
		return versionAtLeast(d.major, d.minor, 3, 0)
	}
	return false
}

// SetViewport sets the GL viewport rectangle.
func (d *Device) SetViewport(x, y, w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setViewport(int32(x), int32(y), int32(w), int32(h))
}

// GetViewport returns the current viewport rectangle.
func (d *Device) GetViewport() (x, y, w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.viewport
	return int(v[0]), int(v[1]), int(v[2]), int(v[3])
}

// SetOrthoProjection sets the device projection applied before every batch matrix.
func (d *Device) SetOrthoProjection(o Ortho) {
	d.mu.Lock()
	d.ortho = o
	d.mu.Unlock()
}

// GetOrthoProjection returns the current projection volume.
func (d *Device) GetOrthoProjection() Ortho {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ortho
}

// Projection returns the device projection matrix.
func (d *Device) Projection() mgl32.Mat4 {
	return d.GetOrthoProjection().Matrix()
}

// Resize points the viewport and a top-left projection at a w x h surface.
func (d *Device) Resize(w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setViewport(0, 0, int32(w), int32(h))
	d.ortho = TopLeftOrtho(w, h)
}

// Clear fills the current target with c.
func (d *Device) Clear(c mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Release frees the device's built-in resources. Objects created through the
// device must be released by their owners first.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.builtin != nil {
		d.builtin.release()
		d.builtin = nil
	}
	if d.white != nil {
		d.white.release()
		d.white = nil
	}
	d.stream.release()
}

func (d *Device) setViewport(x, y, w, h int32) {
	d.viewport = [4]int32{x, y, w, h}
	gl.Viewport(x, y, w, h)
}
