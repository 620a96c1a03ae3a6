// Command x2d-caps reports what the OpenGL device supports and, with -probe,
// renders a quad into a texture and reads it back.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"x2d/internal/graphics/batch"
	"x2d/internal/graphics/opengl"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

func init() {
	runtime.LockOSThread()
}

type report struct {
	Version  string          `yaml:"version"`
	Renderer string          `yaml:"renderer"`
	Features map[string]bool `yaml:"features"`
	Probe    *probeResult    `yaml:"probe,omitempty"`
}

type probeResult struct {
	Static bool     `yaml:"static"`
	Pixel  [4]uint8 `yaml:"pixel,flow"`
	OK     bool     `yaml:"ok"`
}

func main() {
	asYAML := flag.Bool("yaml", false, "print the report as YAML")
	disable := flag.String("disable", "", "comma separated features to treat as unsupported")
	probe := flag.Bool("probe", false, "render to a texture and read the result back")
	flag.Parse()

	if err := run(*asYAML, *disable, *probe); err != nil {
		fmt.Fprintln(os.Stderr, "x2d-caps:", err)
		os.Exit(1)
	}
}

func run(asYAML bool, disable string, probe bool) error {
	var disabled []batch.Feature
	for _, name := range strings.Split(disable, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		f, ok := batch.ParseFeature(name)
		if !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		disabled = append(disabled, f)
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)

	window, err := glfw.CreateWindow(64, 64, "x2d-caps", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()
	window.MakeContextCurrent()

	dev, err := opengl.New(opengl.Options{Width: 64, Height: 64, DisabledFeatures: disabled})
	if err != nil {
		return err
	}
	defer dev.Release()

	r := report{
		Version:  dev.Version(),
		Renderer: dev.Renderer(),
		Features: map[string]bool{},
	}
	for _, f := range []batch.Feature{batch.FeatureVertexBufferObjects, batch.FeatureFrameBufferObjects} {
		r.Features[f.String()] = dev.IsSupported(f)
	}
	if probe {
		res, err := runProbe(dev)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		r.Probe = res
	}

	if asYAML {
		out, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}
	fmt.Printf("version:  %s\nrenderer: %s\n", r.Version, r.Renderer)
	for _, f := range []batch.Feature{batch.FeatureVertexBufferObjects, batch.FeatureFrameBufferObjects} {
		fmt.Printf("  %-22s %v\n", f, r.Features[f.String()])
	}
	if r.Probe != nil {
		fmt.Printf("probe: static=%v pixel=%v ok=%v\n", r.Probe.Static, r.Probe.Pixel, r.Probe.OK)
	}
	return nil
}

// runProbe fills a 4x4 target with an opaque red quad through a static batch
// and checks a pixel read back from the texture.
func runProbe(dev *opengl.Device) (*probeResult, error) {
	target, err := dev.CreateRenderTarget(4, 4)
	if err != nil {
		return nil, err
	}
	defer target.Release()

	b := batch.New(dev)
	defer b.Release()
	if err := b.RenderToTexture(target); err != nil {
		return nil, err
	}
	b.AddRect(0, 0, 4, 4, mgl32.Vec4{1, 0, 0, 1})
	if err := b.MakeStatic(); err != nil {
		return nil, err
	}
	if err := b.Draw(); err != nil {
		return nil, err
	}

	img, err := target.Pixels()
	if err != nil {
		return nil, err
	}
	c := img.RGBAAt(1, 1)
	return &probeResult{
		Static: b.IsStatic(),
		Pixel:  [4]uint8{c.R, c.G, c.B, c.A},
		OK:     c.R == 255 && c.G == 0 && c.B == 0 && c.A == 255,
	}, nil
}
