// Package shaders embeds the WGSL sources of the particle vertex factories.
package shaders

import (
	_ "embed"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed sprite.wgsl
var SpriteWGSL string

//go:embed subuv.wgsl
var SubUVWGSL string

//go:embed beam_trail.wgsl
var BeamTrailWGSL string

//go:embed mesh.wgsl
var MeshWGSL string

//go:embed line.wgsl
var LineWGSL string

//go:embed text.wgsl
var TextWGSL string

// Particle modules share the camera and draw uniforms declared in common.wgsl. SubUV
// reuses the sprite expansion.
var (
	SpriteModule    = CommonWGSL + SpriteWGSL
	SubUVModule     = CommonWGSL + SpriteWGSL + SubUVWGSL
	BeamTrailModule = CommonWGSL + BeamTrailWGSL
	MeshModule      = CommonWGSL + MeshWGSL
	LineModule      = CommonWGSL + LineWGSL
)
