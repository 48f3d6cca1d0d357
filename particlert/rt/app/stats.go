package app

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// StatsRecord is one row of the per-frame particle stats file.
type StatsRecord struct {
	Frame     uint64  `csv:"frame"`
	TimeSec   float64 `csv:"time_s"`
	FPS       float64 `csv:"fps"`
	Systems   int     `csv:"systems"`
	Emitters  int     `csv:"emitters"`
	Particles int     `csv:"particles"`
	Proxies   int     `csv:"proxies"`
	Visible   int     `csv:"visible"`
	Draws     int     `csv:"draws"`
	Triangles int     `csv:"triangles"`
	Vertices  int     `csv:"vertices"`
	Lines     int     `csv:"lines"`
	Rejected  int     `csv:"rejected"`
	Commands  int     `csv:"commands"`
	DrawMS    float64 `csv:"draw_ms"`
	FrameMS   float64 `csv:"frame_ms"`
}

// StatsWriter appends StatsRecords as CSV, writing the header once.
type StatsWriter struct {
	w             io.Writer
	closer        io.Closer
	headerWritten bool
}

// NewStatsWriter creates (truncating) the CSV file at path.
func NewStatsWriter(path string) (*StatsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &StatsWriter{w: f, closer: f}, nil
}

func NewStatsWriterTo(w io.Writer) *StatsWriter {
	return &StatsWriter{w: w}
}

func (s *StatsWriter) Write(rec StatsRecord) error {
	if s == nil {
		return nil
	}
	records := []StatsRecord{rec}
	if !s.headerWritten {
		if err := gocsv.Marshal(records, s.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		s.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, s.w); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

func (s *StatsWriter) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
