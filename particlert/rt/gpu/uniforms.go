package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/particles/particlert/rt/core"
)

// Uniform sizes. Draw uniforms are bound with dynamic offsets, which must be multiples of
// the device's minUniformBufferOffsetAlignment (256 on every backend wgpu supports).
const (
	cameraUniformSize = 256
	drawUniformSize   = 128
	drawUniformStride = 256
)

// packCamera lays out the Camera struct of common.wgsl:
//
//	0   view_proj mat4
//	64  right     vec4
//	80  up        vec4
//	96  forward   vec4
//	112 origin    vec4
func packCamera(buf []byte, view *core.SceneView) {
	_ = buf[cameraUniformSize-1]
	putMat4(buf, 0, view.ViewProjection)
	putVec4(buf, 64, view.CameraRight().Vec4(0))
	putVec4(buf, 80, view.CameraUp().Vec4(0))
	putVec4(buf, 96, view.CameraForward().Vec4(0))
	putVec4(buf, 112, view.ViewOrigin.Vec4(1))
}

// packDraw lays out the Draw struct of common.wgsl:
//
//	0   local_to_world mat4
//	64  color          vec4
//	80  params         vec4 (alignment, axis lock, sub-images h, v)
//	96  lock_axis      vec4
//	112 flags          vec4 (selected, lit, blend mode)
func packDraw(buf []byte, b *core.MeshBatch) {
	_ = buf[drawUniformSize-1]
	putMat4(buf, 0, b.LocalToWorld)

	color := mgl32.Vec4{1, 1, 1, 1}
	var flags mgl32.Vec4
	if mp := b.Material; mp != nil && mp.Material != nil {
		m := mp.Material
		color = m.BaseColor
		if mp.Selected {
			flags[0] = 1
		}
		if m.Lighting == core.LightingLit {
			flags[1] = 1
		}
		flags[2] = float32(m.BlendMode)
	}
	putVec4(buf, 64, color)
	putVec4(buf, 80, mgl32.Vec4{
		float32(b.Params.ScreenAlignment),
		float32(b.Params.AxisLock),
		float32(b.Params.SubImages[0]),
		float32(b.Params.SubImages[1]),
	})
	putVec4(buf, 96, b.Params.LockAxis.Vec4(0))
	putVec4(buf, 112, flags)
}

func putMat4(b []byte, off int, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[off+i*4:], math.Float32bits(v))
	}
}

func putVec4(b []byte, off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(b[off+i*4:], math.Float32bits(v[i]))
	}
}
