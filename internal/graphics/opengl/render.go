package opengl

import (
	"x2d/internal/graphics/batch"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderBatch emits one DrawElements per bucket in state order. Resident
// buckets draw from their own buffers, the rest are streamed from client
// memory. The projection is the device ortho followed by the batch matrix.
func (d *Device) RenderBatch(b *batch.Batch) error {
	defer d.profiler.Track("opengl.RenderBatch")()

	d.mu.Lock()
	defer d.mu.Unlock()

	proj := d.ortho.Matrix().Mul4(b.GetProjectionMatrix())
	var draws, streamed int64
	for state, buf := range b.Buckets() {
		if buf.IndexCount() == 0 {
			continue
		}
		d.applyState(state, &proj)

		if vb, ok := d.residentBuffer(buf.VBO(), buf.Resident()); ok {
			gl.BindVertexArray(vb.va.vao)
		} else {
			gl.BindVertexArray(d.stream.vao)
			d.stream.fill(buf.Vertices(), buf.Indices(), gl.STREAM_DRAW)
			streamed += int64(buf.VertexCount())
		}
		gl.DrawElements(primitiveMode(state.Primitive), int32(buf.IndexCount()), gl.UNSIGNED_INT, nil)
		draws++
	}
	gl.BindVertexArray(0)
	gl.ActiveTexture(gl.TEXTURE0)

	d.profiler.Add(CounterDrawCalls, draws)
	d.profiler.Add(CounterBuckets, int64(b.BucketCount()))
	d.profiler.Add(CounterStreamedVertices, streamed)
	return nil
}

// applyState makes state current. The bucket texture, or the white texture
// when there is none, sits on unit 0; sampler uniforms with their own
// texture take units from 1 upwards.
func (d *Device) applyState(state batch.RenderState, proj *mgl32.Mat4) {
	gl.BlendFunc(blendFactor(state.SrcBlend), blendFactor(state.DstBlend))

	tex := d.white.id
	if state.Texture != nil {
		tex = state.Texture.ID()
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	if state.Shader == nil {
		d.builtin.use()
		gl.UniformMatrix4fv(d.builtin.projLoc, 1, false, &proj[0])
		return
	}

	gl.UseProgram(state.Shader.ID())
	uniforms := state.Shader.Uniforms()
	for i, unit := range samplerUnits(uniforms) {
		pushUniform(uniforms[i], unit)
	}
	var projLoc int32
	if s, ok := state.Shader.(*Shader); ok {
		projLoc = s.projLoc
	} else {
		projLoc = gl.GetUniformLocation(state.Shader.ID(), gl.Str(projectionUniform+"\x00"))
	}
	if projLoc >= 0 {
		gl.UniformMatrix4fv(projLoc, 1, false, &proj[0])
	}
}

// residentBuffer returns the GPU copy of a bucket when it can be drawn
// directly: uploaded, current and created by this device.
func (d *Device) residentBuffer(vbo batch.VertexBufferObject, resident bool) (*vertexBuffer, bool) {
	vb, ok := vbo.(*vertexBuffer)
	if !ok || !resident || vb.dev != d {
		return nil, false
	}
	return vb, true
}

// samplerUnits assigns a texture unit to every uniform: -1 for non-samplers,
// 0 for samplers without a texture (the bucket texture) and 1, 2, ... in
// order for samplers carrying their own texture.
func samplerUnits(us []batch.Uniform) []int32 {
	units := make([]int32, len(us))
	next := int32(1)
	for i, u := range us {
		switch {
		case u.Type != batch.UniformSampler2D:
			units[i] = -1
		case u.Texture == nil:
			units[i] = 0
		default:
			units[i] = next
			next++
		}
	}
	return units
}

// pushUniform uploads u; unit is its slot from samplerUnits.
func pushUniform(u batch.Uniform, unit int32) {
	i, f := u.Ints, u.Floats
	switch u.Type {
	case batch.UniformInt:
		gl.Uniform1i(u.Location, i[0])
	case batch.UniformIntVec2:
		gl.Uniform2i(u.Location, i[0], i[1])
	case batch.UniformIntVec3:
		gl.Uniform3i(u.Location, i[0], i[1], i[2])
	case batch.UniformIntVec4:
		gl.Uniform4i(u.Location, i[0], i[1], i[2], i[3])
	case batch.UniformFloat:
		gl.Uniform1f(u.Location, f[0])
	case batch.UniformFloatVec2:
		gl.Uniform2f(u.Location, f[0], f[1])
	case batch.UniformFloatVec3:
		gl.Uniform3f(u.Location, f[0], f[1], f[2])
	case batch.UniformFloatVec4:
		gl.Uniform4f(u.Location, f[0], f[1], f[2], f[3])
	case batch.UniformFloatMat4:
		gl.UniformMatrix4fv(u.Location, 1, false, &f[0])
	case batch.UniformSampler2D:
		if unit > 0 {
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, u.Texture.ID())
		}
		gl.Uniform1i(u.Location, unit)
	}
}
