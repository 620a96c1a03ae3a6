package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"x2d/internal/config"
	"x2d/internal/graphics/opengl"
	"x2d/internal/graphics/prepare"
	"x2d/internal/graphics/renderer"
	"x2d/internal/input"
	"x2d/internal/logging"
	"x2d/internal/profiling"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	renderTargetSize = 256
	panSpeed         = 400 // pixels per second
	spawnStep        = 500
)

// Options configures an App.
type Options struct {
	Config   config.Config
	Profiler *profiling.Profiler
	// Pool builds sprite batches. Required.
	Pool *prepare.Pool
}

// App runs the demo scene: input, layers and frame pacing.
type App struct {
	window   *glfw.Window
	device   *opengl.Device
	input    *input.Manager
	renderer *renderer.Renderer
	profiler *profiling.Profiler
	settings *config.RenderSettings
	textures *opengl.TextureCache
	limiter  *FPSLimiter

	sprites   *spriteLayer
	composite *compositeLayer
	overlay   *overlayLayer

	slowFrame   time.Duration
	configLimit int
	lastTime    time.Time
	frameTime   time.Duration
}

// New creates the layers and the renderer and attaches input to window.
// ctx bounds background batch builds.
func New(ctx context.Context, window *glfw.Window, dev *opengl.Device, opts Options) (*App, error) {
	if opts.Pool == nil {
		return nil, errors.New("app: no prepare pool")
	}
	cfg := opts.Config
	settings := config.NewRenderSettings(cfg.Graphics)

	a := &App{
		window:      window,
		device:      dev,
		input:       input.NewManager(),
		profiler:    opts.Profiler,
		settings:    settings,
		textures:    opengl.NewTextureCache(dev),
		limiter:     NewFPSLimiter(settings.FPSLimit),
		slowFrame:   cfg.Profiling.SlowFrame,
		configLimit: cfg.Graphics.FPSLimit,
	}
	a.sprites = newSpriteLayer(ctx, dev, opts.Pool, a.textures, settings, opts.Profiler, cfg)
	a.composite = newCompositeLayer(dev, renderTargetSize)
	a.overlay = newOverlayLayer(dev, opts.Profiler, cfg)

	width, height := window.GetFramebufferSize()
	c := cfg.Graphics.ClearColor
	r, err := renderer.NewRenderer(dev, mgl32.Vec4{c[0], c[1], c[2], c[3]}, width, height,
		a.sprites, a.composite, a.overlay)
	if err != nil {
		a.textures.Release()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	r.SetProfiler(opts.Profiler)
	a.renderer = r

	a.input.Attach(window)
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		if w > 0 && h > 0 {
			a.renderer.UpdateViewport(w, h)
		}
	})
	return a, nil
}

// Run ticks frames until the window is closed or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.lastTime = time.Now()
	for !a.window.ShouldClose() && ctx.Err() == nil {
		a.tick()
	}
}

func (a *App) tick() {
	a.profiler.ResetFrame()
	startTick := time.Now()
	dt := startTick.Sub(a.lastTime).Seconds()
	a.lastTime = startTick

	func() {
		defer a.profiler.Track("glfw.PollEvents")()
		glfw.PollEvents()
	}()
	a.handleActions(dt)

	a.overlay.stats.FPS = fpsOf(a.frameTime)
	a.overlay.stats.FrameTime = a.frameTime
	a.overlay.stats.FPSLimit = a.settings.FPSLimit()
	a.overlay.stats.Sprites = a.sprites.Count()
	a.overlay.stats.Static = a.settings.StaticBatching()
	a.overlay.stats.RenderTarget = a.composite.Enabled()

	a.renderer.Render(dt)
	a.window.SwapBuffers()

	processing := time.Since(startTick)
	if a.slowFrame > 0 && processing > a.slowFrame {
		logging.Logger().Debug("slow frame", "took", processing, "top", a.profiler.TopN(5))
	}

	a.input.PostUpdate()
	a.limiter.Wait()
	a.frameTime = time.Since(startTick)
}

func (a *App) handleActions(dt float64) {
	in := a.input
	if in.JustPressed(input.ActionQuit) {
		a.window.SetShouldClose(true)
	}
	if in.JustPressed(input.ActionToggleStatic) {
		enabled := !a.settings.StaticBatching()
		a.settings.SetStaticBatching(enabled)
		logging.Logger().Info("static batching", "enabled", enabled)
	}
	if in.JustPressed(input.ActionToggleRenderTarget) {
		logging.Logger().Info("render to texture", "enabled", a.composite.Toggle())
	}
	if in.JustPressed(input.ActionToggleOverlay) {
		a.overlay.Toggle()
	}
	if in.JustPressed(input.ActionToggleFPSLimit) {
		if a.settings.FPSLimit() == 0 {
			a.settings.SetFPSLimit(max(a.configLimit, config.MinFPS))
		} else {
			a.settings.SetFPSLimit(0)
		}
		logging.Logger().Info("fps limit", "fps", a.settings.FPSLimit())
	}
	if in.JustPressed(input.ActionSpawnMore) {
		a.sprites.Resize(spawnStep)
	}
	if in.JustPressed(input.ActionSpawnFewer) {
		a.sprites.Resize(-spawnStep)
	}
	if in.JustPressed(input.ActionStamp) {
		x, y := a.window.GetCursorPos()
		sx, sy := a.cursorScale()
		a.sprites.Stamp(mgl32.Vec2{float32(x) * sx, float32(y) * sy})
	}

	var pan mgl32.Vec2
	step := float32(panSpeed * dt)
	if in.IsActive(input.ActionPanLeft) {
		pan[0] += step
	}
	if in.IsActive(input.ActionPanRight) {
		pan[0] -= step
	}
	if in.IsActive(input.ActionPanUp) {
		pan[1] += step
	}
	if in.IsActive(input.ActionPanDown) {
		pan[1] -= step
	}
	if pan != (mgl32.Vec2{}) {
		a.sprites.Pan(pan)
	}
}

// cursorScale maps window coordinates to framebuffer pixels on HiDPI displays.
func (a *App) cursorScale() (float32, float32) {
	ww, wh := a.window.GetSize()
	fw, fh := a.renderer.GetViewport()
	if ww == 0 || wh == 0 {
		return 1, 1
	}
	return float32(fw) / float32(ww), float32(fh) / float32(wh)
}

// Close disposes every layer and cached texture. The device and pool stay
// with the caller.
func (a *App) Close() {
	a.renderer.Dispose()
	a.textures.Release()
}
