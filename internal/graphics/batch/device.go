package batch

import "errors"

var (
	// ErrIndexOutOfRange is returned for a global vertex index outside [0, GetVertexCount()).
	ErrIndexOutOfRange = errors.New("batch: vertex index out of range")
	// ErrInvalidIndices is returned when an index references a vertex outside the added slice.
	ErrInvalidIndices = errors.New("batch: index references a vertex outside the call")
	// ErrFeatureUnsupported is returned when the device lacks an optional feature.
	ErrFeatureUnsupported = errors.New("batch: feature not supported by device")
	// ErrNoDevice is returned by Draw on a batch created without a device.
	ErrNoDevice = errors.New("batch: no device")
)

// Texture is a backend texture handle. A Batch only records its identity;
// the caller must keep the texture alive while any Batch references it.
type Texture interface {
	ID() uint32
	Width() int
	Height() int
}

// Shader is a backend program handle. Like Texture, it is never released by
// a Batch. Uniforms enumerates the current uniform values so the backend can
// push them before each draw.
type Shader interface {
	ID() uint32
	Uniforms() []Uniform
}

// UniformType tags the arity and element type of a Uniform.
type UniformType int

const (
	UniformInt UniformType = iota
	UniformIntVec2
	UniformIntVec3
	UniformIntVec4
	UniformFloat
	UniformFloatVec2
	UniformFloatVec3
	UniformFloatVec4
	UniformFloatMat4
	UniformSampler2D
)

// Components returns the number of scalar components stored for t.
func (t UniformType) Components() int {
	switch t {
	case UniformInt, UniformFloat, UniformSampler2D:
		return 1
	case UniformIntVec2, UniformFloatVec2:
		return 2
	case UniformIntVec3, UniformFloatVec3:
		return 3
	case UniformIntVec4, UniformFloatVec4:
		return 4
	case UniformFloatMat4:
		return 16
	}
	return 0
}

// IsInt reports whether t stores its value in Uniform.Ints.
func (t UniformType) IsInt() bool {
	return t >= UniformInt && t <= UniformIntVec4
}

// Uniform is one active shader uniform and its current value.
// Int types use Ints, float and matrix types use Floats, samplers use Texture.
type Uniform struct {
	Name     string
	Type     UniformType
	Location int32
	Ints     [4]int32
	Floats   [16]float32
	Texture  Texture
}

// Feature is an optional device capability.
type Feature int

const (
	FeatureVertexBufferObjects Feature = iota
	FeatureFrameBufferObjects
)

func (f Feature) String() string {
	switch f {
	case FeatureVertexBufferObjects:
		return "vertex_buffer_objects"
	case FeatureFrameBufferObjects:
		return "frame_buffer_objects"
	}
	return "unknown"
}

// ParseFeature is the inverse of Feature.String.
func ParseFeature(s string) (Feature, bool) {
	switch s {
	case "vertex_buffer_objects":
		return FeatureVertexBufferObjects, true
	case "frame_buffer_objects":
		return FeatureFrameBufferObjects, true
	}
	return 0, false
}

// VertexBufferObject is a GPU vertex+index buffer pair owned by one bucket.
type VertexBufferObject interface {
	// Upload replaces both buffers with the given contents.
	Upload(vertices []Vertex, indices []uint32)
	// UploadSubRange overwrites vertices starting at vertex offset.
	UploadSubRange(offset int, vertices []Vertex)
	Release()
}

// FrameBufferObject redirects drawing into a texture. Bind saves the device
// viewport and projection and replaces them with a top-left-origin
// orthographic projection spanning the target; Unbind restores them.
type FrameBufferObject interface {
	Bind(target Texture) error
	Unbind()
	Release()
}

// Device is the backend a Batch submits to.
type Device interface {
	IsSupported(f Feature) bool
	CreateVertexBufferObject() (VertexBufferObject, error)
	CreateFrameBufferObject() (FrameBufferObject, error)
	RenderBatch(b *Batch) error
}
