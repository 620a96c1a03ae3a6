package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler accumulates per-frame CPU timings and counters.
// A nil *Profiler is valid and records nothing.
type Profiler struct {
	mu       sync.Mutex
	totals   map[string]time.Duration
	counters map[string]int64
}

// New returns an empty profiler.
func New() *Profiler {
	return &Profiler{
		totals:   make(map[string]time.Duration),
		counters: make(map[string]int64),
	}
}

// Track returns a stop function that records the elapsed time under name.
// Usage: defer p.Track("opengl.RenderBatch")()
func (p *Profiler) Track(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.mu.Lock()
		p.totals[name] += d
		p.mu.Unlock()
	}
}

// Add increments the named frame counter by n.
func (p *Profiler) Add(counter string, n int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters[counter] += n
	p.mu.Unlock()
}

// ResetFrame clears timings and counters. Call at the start of each frame.
func (p *Profiler) ResetFrame() {
	if p == nil {
		return
	}
	p.mu.Lock()
	clear(p.totals)
	clear(p.counters)
	p.mu.Unlock()
}

// Snapshot returns a copy of the current frame timings.
func (p *Profiler) Snapshot() map[string]time.Duration {
	out := make(map[string]time.Duration)
	if p == nil {
		return out
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.totals {
		out[k] = v
	}
	return out
}

// Counters returns a copy of the current frame counters.
func (p *Profiler) Counters() map[string]int64 {
	out := make(map[string]int64)
	if p == nil {
		return out
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.counters {
		out[k] = v
	}
	return out
}

// Counter returns a single counter value for the current frame.
func (p *Profiler) Counter(name string) int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters[name]
}

// TopN formats the n most expensive timings of the current frame.
// Example: "opengl.RenderBatch:4.2ms, prepare.Build:2.1ms"
func (p *Profiler) TopN(n int) string {
	type entry struct {
		name string
		dur  time.Duration
	}
	snap := p.Snapshot()
	list := make([]entry, 0, len(snap))
	for k, v := range snap {
		list = append(list, entry{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, e.name+":"+FormatMs(e.dur))
	}
	return strings.Join(parts, ", ")
}

// FormatMs renders d in milliseconds with one decimal, dropping ".0".
func FormatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("%.1f", ms)
	s = strings.TrimSuffix(s, ".0")
	return s + "ms"
}
