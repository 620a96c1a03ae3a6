package opengl

import (
	"fmt"
	"strconv"
	"strings"

	"x2d/internal/graphics/batch"

	"github.com/go-gl/gl/v4.1-core/gl"
)

var blendFactors = [...]uint32{
	batch.BlendZero:             gl.ZERO,
	batch.BlendOne:              gl.ONE,
	batch.BlendSrcColor:         gl.SRC_COLOR,
	batch.BlendOneMinusSrcColor: gl.ONE_MINUS_SRC_COLOR,
	batch.BlendSrcAlpha:         gl.SRC_ALPHA,
	batch.BlendOneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
	batch.BlendDstColor:         gl.DST_COLOR,
	batch.BlendOneMinusDstColor: gl.ONE_MINUS_DST_COLOR,
	batch.BlendDstAlpha:         gl.DST_ALPHA,
	batch.BlendOneMinusDstAlpha: gl.ONE_MINUS_DST_ALPHA,
	batch.BlendSrcAlphaSaturate: gl.SRC_ALPHA_SATURATE,
}

// blendFactor maps a blend function to its GL enum. Unknown values fall back to GL_ONE.
func blendFactor(f batch.BlendFunc) uint32 {
	if f < 0 || int(f) >= len(blendFactors) {
		return gl.ONE
	}
	return blendFactors[f]
}

func primitiveMode(p batch.Primitive) uint32 {
	switch p {
	case batch.PrimitivePoints:
		return gl.POINTS
	case batch.PrimitiveLines:
		return gl.LINES
	}
	return gl.TRIANGLES
}

// Filter selects texture sampling for minification and magnification.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) glEnum() int32 {
	if f == FilterLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// Wrap selects how texture coordinates outside [0, 1] are resolved.
type Wrap int

const (
	WrapClampToBorder Wrap = iota
	WrapClampToEdge
	WrapRepeat
	WrapMirroredRepeat
)

func (w Wrap) glEnum() int32 {
	switch w {
	case WrapClampToBorder:
		return gl.CLAMP_TO_BORDER
	case WrapRepeat:
		return gl.REPEAT
	case WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

// uniformType maps a GL active uniform type. Types without a batch.UniformType
// counterpart report false and are not reflected.
func uniformType(xtype uint32) (batch.UniformType, bool) {
	switch xtype {
	case gl.INT, gl.BOOL:
		return batch.UniformInt, true
	case gl.INT_VEC2, gl.BOOL_VEC2:
		return batch.UniformIntVec2, true
	case gl.INT_VEC3, gl.BOOL_VEC3:
		return batch.UniformIntVec3, true
	case gl.INT_VEC4, gl.BOOL_VEC4:
		return batch.UniformIntVec4, true
	case gl.FLOAT:
		return batch.UniformFloat, true
	case gl.FLOAT_VEC2:
		return batch.UniformFloatVec2, true
	case gl.FLOAT_VEC3:
		return batch.UniformFloatVec3, true
	case gl.FLOAT_VEC4:
		return batch.UniformFloatVec4, true
	case gl.FLOAT_MAT4:
		return batch.UniformFloatMat4, true
	case gl.SAMPLER_2D:
		return batch.UniformSampler2D, true
	}
	return 0, false
}

// parseVersion extracts major.minor from a GL_VERSION string such as
// "4.1 Metal - 88" or "OpenGL ES 3.0 Mesa 23.1".
func parseVersion(s string) (major, minor int, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "OpenGL ES ")
	head, _, _ := strings.Cut(s, " ")
	parts := strings.Split(head, ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("parse gl version %q: missing minor", s)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("parse gl version %q: %w", s, err)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("parse gl version %q: %w", s, err)
	}
	return major, minor, nil
}

func versionAtLeast(major, minor, wantMajor, wantMinor int) bool {
	return major > wantMajor || (major == wantMajor && minor >= wantMinor)
}
