package app

import (
	"context"
	"fmt"
	"time"

	"x2d/internal/config"
	"x2d/internal/graphics/batch"
	"x2d/internal/graphics/font"
	"x2d/internal/graphics/opengl"
	"x2d/internal/graphics/prepare"
	"x2d/internal/graphics/renderer"
	"x2d/internal/logging"
	"x2d/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/gofont/goregular"
)

// spriteLayer draws a field of sprites built on the prepare pool. Each pool
// worker fills one batch; the batches are made static when static batching
// is enabled.
type spriteLayer struct {
	ctx      context.Context
	dev      *opengl.Device
	pool     *prepare.Pool
	settings *config.RenderSettings
	profiler *profiling.Profiler
	textures *opengl.TextureCache

	texturePath string
	count       int
	seed        int64

	texture *opengl.Texture
	// ownTexture is set when the texture is not owned by the cache.
	ownTexture bool
	batches    []*batch.Batch
	static     bool
	dirty      bool
	stamped    int

	width, height int
	pan           mgl32.Vec2
	elapsed       float64
}

func newSpriteLayer(ctx context.Context, dev *opengl.Device, pool *prepare.Pool, textures *opengl.TextureCache, settings *config.RenderSettings, profiler *profiling.Profiler, cfg config.Config) *spriteLayer {
	return &spriteLayer{
		ctx:         ctx,
		dev:         dev,
		pool:        pool,
		textures:    textures,
		settings:    settings,
		profiler:    profiler,
		texturePath: cfg.Assets.Sprite,
		count:       cfg.Demo.Sprites,
		seed:        1,
		dirty:       true,
	}
}

func (l *spriteLayer) Init() error {
	var err error
	if l.texturePath != "" {
		l.texture, err = l.textures.Get(l.texturePath)
	} else {
		l.texture, err = l.dev.CreateTexture(checkerImage(32, 4))
		l.ownTexture = true
	}
	if err != nil {
		return fmt.Errorf("sprite texture: %w", err)
	}
	l.texture.SetFiltering(opengl.FilterLinear)
	return nil
}

func (l *spriteLayer) SetViewport(width, height int) {
	if width != l.width || height != l.height {
		l.width, l.height = width, height
		l.dirty = true
	}
}

func (l *spriteLayer) Render(ctx renderer.RenderContext) {
	l.elapsed += ctx.DT
	if l.dirty || l.static != l.settings.StaticBatching() {
		if err := l.rebuild(); err != nil {
			logging.Logger().Error("sprites: rebuild failed", "err", err)
			return
		}
	}
	if len(l.batches) == 0 {
		return
	}

	// The first sprite pulses; on a static batch this is a sub-range upload.
	if l.batches[0].GetVertexCount() >= 4 {
		if err := pulseQuad(l.batches[0], 0, l.elapsed); err != nil {
			logging.Logger().Warn("sprites: pulse", "err", err)
		}
	}

	view := mgl32.Translate3D(l.pan.X(), l.pan.Y(), 0)
	for _, b := range l.batches {
		b.SetProjectionMatrix(view)
		if err := b.Draw(); err != nil {
			logging.Logger().Warn("sprites: draw", "err", err)
		}
	}
}

func (l *spriteLayer) rebuild() error {
	defer l.profiler.Track("sprites.rebuild")()

	l.release()
	sprites := scatterSprites(l.count, l.width, l.height, l.seed)
	chunks := splitSprites(sprites, l.pool.Workers())
	jobs := make([]prepare.Job, len(chunks))
	for i, chunk := range chunks {
		jobs[i] = prepare.Job{
			Batch: batch.New(l.dev),
			Build: func(b *batch.Batch) error {
				addSprites(b, l.texture, chunk)
				return nil
			},
		}
	}
	results, err := l.pool.BuildAll(l.ctx, jobs...)
	if err != nil {
		return err
	}

	static := l.settings.StaticBatching()
	l.batches = make([]*batch.Batch, 0, len(results))
	for _, res := range results {
		if static {
			if err := res.Batch.MakeStatic(); err != nil {
				logging.Logger().Warn("sprites: make static", "err", err)
			}
		}
		l.batches = append(l.batches, res.Batch)
	}
	l.static = static
	l.dirty = false
	l.stamped = 0
	logging.Logger().Debug("sprites: rebuilt", "sprites", len(sprites), "batches", len(l.batches), "static", static)
	return nil
}

// Stamp adds one sprite at the screen position p. Added to a static batch,
// its bucket is drawn from client memory until the next rebuild.
func (l *spriteLayer) Stamp(p mgl32.Vec2) {
	if len(l.batches) == 0 {
		l.batches = append(l.batches, batch.New(l.dev))
	}
	s := sprite{
		pos:   p.Sub(l.pan),
		size:  24,
		color: mgl32.Vec4{1, 0.85, 0.3, 1},
		order: spriteLayers - 1,
	}
	addSprites(l.batches[len(l.batches)-1], l.texture, []sprite{s})
	l.stamped++
}

// Resize changes the sprite count by delta, clamped to [0, config.MaxSprites].
func (l *spriteLayer) Resize(delta int) {
	n := min(max(l.count+delta, 0), config.MaxSprites)
	if n != l.count {
		l.count = n
		l.dirty = true
	}
}

func (l *spriteLayer) Pan(d mgl32.Vec2) { l.pan = l.pan.Add(d) }

// Count returns the number of sprites currently drawn.
func (l *spriteLayer) Count() int { return l.count + l.stamped }

func (l *spriteLayer) release() {
	for _, b := range l.batches {
		b.Release()
	}
	l.batches = nil
}

func (l *spriteLayer) Dispose() {
	l.release()
	if l.texture != nil && l.ownTexture {
		l.texture.Release()
	}
	l.texture = nil
}

// compositeLayer renders a scene into an offscreen target every frame and
// presents it through a custom shader. It stays inert on devices without
// framebuffer objects.
type compositeLayer struct {
	dev  *opengl.Device
	size int

	target  *opengl.Texture
	shader  *opengl.Shader
	scene   *batch.Batch
	present *batch.Batch

	enabled bool
	elapsed float64
	width   int
}

func newCompositeLayer(dev *opengl.Device, size int) *compositeLayer {
	return &compositeLayer{dev: dev, size: size, enabled: true}
}

func (l *compositeLayer) Init() error {
	if !l.dev.IsSupported(batch.FeatureFrameBufferObjects) {
		logging.Logger().Info("composite: framebuffer objects unsupported, layer disabled")
		l.enabled = false
		return nil
	}
	target, err := l.dev.CreateRenderTarget(l.size, l.size)
	if err != nil {
		return fmt.Errorf("composite target: %w", err)
	}
	target.SetFiltering(opengl.FilterLinear)
	shader, err := l.dev.CreateShader(opengl.DefaultVertexShader, compositeFragmentShader)
	if err != nil {
		target.Release()
		return fmt.Errorf("composite shader: %w", err)
	}
	l.target, l.shader = target, shader

	l.scene = batch.New(l.dev)
	if err := l.scene.RenderToTexture(target); err != nil {
		l.Dispose()
		return fmt.Errorf("composite scene: %w", err)
	}
	l.present = batch.New(l.dev)
	l.present.SetShader(shader)
	l.present.SetTexture(target)
	return nil
}

func (l *compositeLayer) SetViewport(width, _ int) {
	l.width = width
	if l.present == nil {
		return
	}
	l.present.Clear()
	l.present.SetShader(l.shader)
	l.present.SetTexture(l.target)
	s := float32(l.size)
	l.present.AddQuad(presentQuad(float32(width)-s-16, 16, s, s))
}

// Toggle flips the layer on or off and reports the new state.
func (l *compositeLayer) Toggle() bool {
	if l.target == nil {
		return false
	}
	l.enabled = !l.enabled
	return l.enabled
}

func (l *compositeLayer) Enabled() bool { return l.enabled && l.target != nil }

func (l *compositeLayer) Render(ctx renderer.RenderContext) {
	if !l.Enabled() {
		return
	}
	l.elapsed += ctx.DT

	l.scene.Clear()
	addWheel(l.scene, l.size, l.elapsed)
	if err := l.scene.Draw(); err != nil {
		logging.Logger().Warn("composite: scene draw", "err", err)
		return
	}

	l.shader.SetFloat("u_time", float32(l.elapsed))
	l.shader.SetFloat("u_tint", 1, 1, 1, 0.9)
	if err := l.present.Draw(); err != nil {
		logging.Logger().Warn("composite: present", "err", err)
	}
}

func (l *compositeLayer) Dispose() {
	if l.scene != nil {
		l.scene.Release()
		l.scene = nil
	}
	if l.present != nil {
		l.present.Release()
		l.present = nil
	}
	if l.shader != nil {
		l.shader.Release()
		l.shader = nil
	}
	if l.target != nil {
		l.target.Release()
		l.target = nil
	}
}

// overlayLayer draws frame statistics in the top-left corner.
type overlayLayer struct {
	dev      *opengl.Device
	profiler *profiling.Profiler
	fontPath string
	fontSize int

	texture *opengl.Texture
	font    *font.Font
	batch   *batch.Batch
	visible bool

	// stats is filled in by the app before each frame is rendered.
	stats frameStats
}

func newOverlayLayer(dev *opengl.Device, profiler *profiling.Profiler, cfg config.Config) *overlayLayer {
	return &overlayLayer{
		dev:      dev,
		profiler: profiler,
		fontPath: cfg.Assets.Font,
		fontSize: cfg.Assets.FontSize,
		visible:  cfg.Profiling.Overlay,
	}
}

func (l *overlayLayer) Init() error {
	var (
		atlas *font.Atlas
		err   error
	)
	if l.fontPath != "" {
		atlas, err = font.LoadAtlas(l.fontPath, l.fontSize)
	} else {
		atlas, err = font.BuildAtlas(goregular.TTF, l.fontSize)
	}
	if err != nil {
		return fmt.Errorf("overlay font: %w", err)
	}
	l.texture, err = l.dev.CreateTexture(atlas.Image)
	if err != nil {
		return fmt.Errorf("overlay font texture: %w", err)
	}
	l.texture.SetFiltering(opengl.FilterLinear)
	l.font, err = font.New(atlas, l.texture)
	if err != nil {
		l.texture.Release()
		return err
	}
	l.batch = batch.New(l.dev)
	return nil
}

func (l *overlayLayer) SetViewport(int, int) {}

func (l *overlayLayer) Toggle() { l.visible = !l.visible }

func (l *overlayLayer) Render(renderer.RenderContext) {
	if !l.visible {
		return
	}
	s := l.stats
	s.DrawCalls = l.profiler.Counter(opengl.CounterDrawCalls)
	s.Buckets = l.profiler.Counter(opengl.CounterBuckets)
	s.Streamed = l.profiler.Counter(opengl.CounterStreamedVertices)
	s.Top = l.profiler.TopN(3)
	text := overlayText(s)

	l.batch.Clear()
	w, h := l.font.Measure(text)
	l.batch.SetDrawOrder(0)
	l.batch.SetTexture(nil)
	l.batch.AddRect(4, 4, w+12, h+12, mgl32.Vec4{0, 0, 0, 0.6})
	l.batch.SetDrawOrder(1)
	l.font.Draw(l.batch, mgl32.Vec2{10, 10}, text)
	if err := l.batch.Draw(); err != nil {
		logging.Logger().Warn("overlay: draw", "err", err)
	}
}

func (l *overlayLayer) Dispose() {
	if l.batch != nil {
		l.batch.Release()
		l.batch = nil
	}
	if l.texture != nil {
		l.texture.Release()
		l.texture = nil
	}
}

// fpsOf converts a frame duration to frames per second.
func fpsOf(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(time.Second) / float64(d)
}
