package opengl

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"x2d/internal/graphics/batch"
	"x2d/internal/logging"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Names the device binds or sets on every program.
const (
	projectionUniform = "u_proj"
	samplerUniform    = "u_texture"
)

// DefaultVertexShader is the built-in vertex stage. Custom programs receive
// the same attributes: a_position, a_color and a_texcoord.
const DefaultVertexShader = `#version 410 core
in vec2 a_position;
in vec4 a_color;
in vec2 a_texcoord;

uniform mat4 u_proj;

out vec4 v_color;
out vec2 v_texcoord;

void main() {
	v_color = a_color;
	v_texcoord = a_texcoord;
	gl_Position = u_proj * vec4(a_position, 0.0, 1.0);
}
`

// DefaultFragmentShader modulates the vertex color with the bucket texture.
const DefaultFragmentShader = `#version 410 core
in vec4 v_color;
in vec2 v_texcoord;

uniform sampler2D u_texture;

out vec4 frag_color;

void main() {
	frag_color = v_color * texture(u_texture, v_texcoord);
}
`

var (
	ErrUnknownUniform = errors.New("opengl: unknown uniform")
	ErrUniformType    = errors.New("opengl: uniform type mismatch")
)

// Shader is a linked program plus the current value of each active uniform.
// Values are stored on the CPU and pushed by the device before each bucket
// drawn with the program.
type Shader struct {
	dev *Device
	id  uint32

	mu       sync.Mutex
	uniforms map[string]*batch.Uniform
	names    []string
	projLoc  int32
}

var _ batch.Shader = (*Shader)(nil)

// CreateShader compiles and links a program from GLSL sources.
func (d *Device) CreateShader(vertexSrc, fragmentSrc string) (*Shader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compileShader(vertexSrc, fragmentSrc)
}

// LoadShader reads the sources from disk and calls CreateShader.
func (d *Device) LoadShader(vertexPath, fragmentPath string) (*Shader, error) {
	vertexSource, err := os.ReadFile(vertexPath)
	if err != nil {
		return nil, fmt.Errorf("could not read vertex shader file: %w", err)
	}
	fragmentSource, err := os.ReadFile(fragmentPath)
	if err != nil {
		return nil, fmt.Errorf("could not read fragment shader file: %w", err)
	}
	return d.CreateShader(string(vertexSource), string(fragmentSource))
}

func (d *Device) compileShader(vertexSrc, fragmentSrc string) (*Shader, error) {
	program, err := compileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	uniforms, projLoc := reflectUniforms(program)
	return newShader(d, program, uniforms, projLoc), nil
}

func newShader(d *Device, id uint32, uniforms []batch.Uniform, projLoc int32) *Shader {
	s := &Shader{
		dev:      d,
		id:       id,
		uniforms: make(map[string]*batch.Uniform, len(uniforms)),
		projLoc:  projLoc,
	}
	for i := range uniforms {
		u := uniforms[i]
		s.uniforms[u.Name] = &u
		s.names = append(s.names, u.Name)
	}
	sort.Strings(s.names)
	return s
}

func (s *Shader) ID() uint32 { return s.id }

// Uniforms returns a snapshot of every settable uniform in name order.
func (s *Shader) Uniforms() []batch.Uniform {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]batch.Uniform, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, *s.uniforms[name])
	}
	return out
}

// HasUniform reports whether the program declares an active uniform name.
func (s *Shader) HasUniform(name string) bool {
	_, ok := s.location(name)
	return ok
}

// SetInt sets an int or ivecN uniform; len(v) must match its arity.
func (s *Shader) SetInt(name string, v ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.lookup(name, len(v), func(t batch.UniformType) bool { return t.IsInt() })
	if err != nil {
		logging.Logger().Warn("opengl: set uniform", "name", name, "err", err)
		return
	}
	copy(u.Ints[:], v)
}

// SetFloat sets a float, vecN or mat4 uniform; len(v) must match its arity.
func (s *Shader) SetFloat(name string, v ...float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.lookup(name, len(v), func(t batch.UniformType) bool {
		return !t.IsInt() && t != batch.UniformSampler2D
	})
	if err != nil {
		logging.Logger().Warn("opengl: set uniform", "name", name, "err", err)
		return
	}
	copy(u.Floats[:], v)
}

// SetMatrix4 sets a mat4 uniform.
func (s *Shader) SetMatrix4(name string, m mgl32.Mat4) {
	s.SetFloat(name, m[:]...)
}

// SetTexture binds t to a sampler2D uniform. A nil texture samples the
// bucket texture.
func (s *Shader) SetTexture(name string, t batch.Texture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.lookup(name, 1, func(t batch.UniformType) bool { return t == batch.UniformSampler2D })
	if err != nil {
		logging.Logger().Warn("opengl: set uniform", "name", name, "err", err)
		return
	}
	u.Texture = t
}

// Release deletes the program. Batches still referencing it must be cleared first.
func (s *Shader) Release() {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.release()
}

func (s *Shader) release() {
	if s.id != 0 {
		gl.DeleteProgram(s.id)
		s.id = 0
	}
}

func (s *Shader) use() { gl.UseProgram(s.id) }

func (s *Shader) location(name string) (int32, bool) {
	if name == projectionUniform {
		return s.projLoc, s.projLoc >= 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uniforms[name]
	if !ok {
		return -1, false
	}
	return u.Location, true
}

func (s *Shader) lookup(name string, n int, accept func(batch.UniformType) bool) (*batch.Uniform, error) {
	u, ok := s.uniforms[name]
	if !ok {
		return nil, ErrUnknownUniform
	}
	if !accept(u.Type) || u.Type.Components() != n {
		return nil, fmt.Errorf("%w: %d values for type %d", ErrUniformType, n, u.Type)
	}
	return u, nil
}

// reflectUniforms lists the program's active uniforms. The projection
// uniform is returned separately since the device owns its value.
func reflectUniforms(program uint32) ([]batch.Uniform, int32) {
	var count, maxLen int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)

	projLoc := int32(-1)
	var uniforms []batch.Uniform
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		buf := strings.Repeat("\x00", int(maxLen+1))
		gl.GetActiveUniform(program, uint32(i), maxLen, &length, &size, &xtype, gl.Str(buf))
		name := strings.TrimSuffix(buf[:length], "[0]")
		loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))

		if name == projectionUniform {
			projLoc = loc
			continue
		}
		typ, ok := uniformType(xtype)
		if !ok {
			logging.Logger().Debug("opengl: skipping uniform", "name", name, "gl_type", xtype)
			continue
		}
		uniforms = append(uniforms, batch.Uniform{Name: name, Type: typ, Location: loc})
	}
	return uniforms, projLoc
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileStage(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileStage(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.BindAttribLocation(program, attribPosition, gl.Str("a_position\x00"))
	gl.BindAttribLocation(program, attribColor, gl.Str("a_color\x00"))
	gl.BindAttribLocation(program, attribTexCoord, gl.Str("a_texcoord\x00"))
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileStage(source string, stage uint32) (uint32, error) {
	shader := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
