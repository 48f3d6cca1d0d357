package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last duration of named CPU scopes and a set of counters for the HUD
// and the stats file. Render thread only.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.StartTimes[name]; !seen {
		p.Order = append(p.Order, name)
	}
	p.StartTimes[name] = time.Now()
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

// Scope times fn under name.
func (p *Profiler) Scope(name string, fn func()) {
	p.BeginScope(name)
	fn()
	p.EndScope(name)
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Millis(name string) float64 {
	return float64(p.Scopes[name].Microseconds()) / 1000
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder
	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, "  %-12s %6.2f ms\n", name, p.Millis(name))
	}

	sb.WriteString("Counters:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-12s %d\n", k, p.Counts[k])
	}
	return sb.String()
}
