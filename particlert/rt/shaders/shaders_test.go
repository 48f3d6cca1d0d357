package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModulesCarryEntryPoints(t *testing.T) {
	cases := map[string][]string{
		SpriteModule:    {"fn vs_main", "fn vs_dynamic", "fn fs_main"},
		SubUVModule:     {"fn vs_subuv", "fn vs_subuv_dynamic", "fn fs_subuv"},
		BeamTrailModule: {"fn vs_main", "fn fs_main"},
		MeshModule:      {"fn vs_main", "fn vs_instanced", "fn fs_main"},
		LineModule:      {"fn vs_main", "fn fs_main"},
		TextWGSL:        {"fn vs_main", "fn fs_main"},
	}
	for src, entries := range cases {
		for _, e := range entries {
			assert.True(t, strings.Contains(src, e), "missing %s", e)
		}
	}
}

func TestParticleModulesShareUniforms(t *testing.T) {
	for _, src := range []string{SpriteModule, SubUVModule, BeamTrailModule, MeshModule, LineModule} {
		assert.Equal(t, 1, strings.Count(src, "var<uniform> camera"))
		assert.Equal(t, 1, strings.Count(src, "var<uniform> draw"))
	}
}
