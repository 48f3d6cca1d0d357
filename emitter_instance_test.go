package particles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/particles/particlert/rt/core"
)

func TestCaptureIsIndependentOfStorage(t *testing.T) {
	e, _ := fountain(t, 10, 16)
	e.Tick(0.5)

	src, err := e.Capture(core.DefaultLimits(), nil)
	require.NoError(t, err)
	sb := src.Base()
	require.Equal(t, 5, sb.ActiveParticleCount)
	assert.NotSame(t, e.Template, src)
	assert.Nil(t, e.Template.Base().ParticleData)

	before := core.ParticleLocation(sb.Record(0))
	e.Storage.Data[0] ^= 0xff
	e.Tick(0.5)
	assert.Equal(t, before, core.ParticleLocation(sb.Record(0)))
	assert.Equal(t, 5, sb.ActiveParticleCount)
}

func TestCaptureKeepsTemplateSettings(t *testing.T) {
	l := NewRecordLayout()
	tmpl := core.NewTrailSource(nil)
	tmpl.Trail = AddSlot[core.TrailPayload](l)
	tmpl.Sheets = 3
	e, err := NewEmitterInstance("trail", tmpl, l.Stride(), 4, nil)
	require.NoError(t, err)

	src, err := e.Capture(core.DefaultLimits(), nil)
	require.NoError(t, err)
	tr, ok := src.(*core.TrailSource)
	require.True(t, ok)
	assert.Equal(t, 3, tr.Sheets)
	assert.Equal(t, tmpl.Trail, tr.Trail)
	assert.Zero(t, tr.ActiveParticleCount)
}

func TestCaptureRejectsOverCapacity(t *testing.T) {
	e, _ := fountain(t, 10, 16)
	e.Tick(1)
	limits := core.DefaultLimits()
	limits.MaxParticles = 4

	_, err := e.Capture(limits, nil)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)

	limits.Policy = core.CapacityClamp
	src, err := e.Capture(limits, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, src.Base().ActiveParticleCount)
}

func TestNewEmitterInstanceErrors(t *testing.T) {
	_, err := NewEmitterInstance("none", nil, core.BaseParticleSize, 1, nil)
	assert.Error(t, err)
	_, err = NewEmitterInstance("thin", core.NewSpriteSource(nil), 8, 1, nil)
	assert.ErrorIs(t, err, core.ErrStrideExceeded)
}

func TestDisabledEmitterDoesNotTick(t *testing.T) {
	e, _ := fountain(t, 10, 16)
	e.Enabled = false
	e.Tick(1)
	assert.Zero(t, e.Active())
	assert.Zero(t, e.Time)
}
