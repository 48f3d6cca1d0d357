package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsWriterHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewStatsWriterTo(&buf)
	require.NoError(t, w.Write(StatsRecord{Frame: 60, Particles: 100, Draws: 4}))
	require.NoError(t, w.Write(StatsRecord{Frame: 120, Particles: 90, Draws: 5}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "frame,time_s,fps,systems"))

	var got []StatsRecord
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(120), got[1].Frame)
	assert.Equal(t, 90, got[1].Particles)
}

func TestStatsWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	w, err := NewStatsWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(StatsRecord{Frame: 1}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame_ms")
}

func TestNilStatsWriter(t *testing.T) {
	var w *StatsWriter
	assert.NoError(t, w.Write(StatsRecord{}))
	assert.NoError(t, w.Close())
}
