package observability

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// StageStats summarises the retained samples of one turn stage.
type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	MaxMS       float64 `json:"max_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  int     `json:"over_target,omitempty"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// StageWindow keeps the most recent durations of each stage. Old samples are
// overwritten once a stage has seen size observations.
type StageWindow struct {
	mu         sync.Mutex
	size       int
	samples    map[string][]time.Duration
	cursor     map[string]int
	last       map[string]time.Duration
	indicators map[string]int
}

func NewStageWindow(size int) *StageWindow {
	if size <= 0 {
		size = 256
	}
	return &StageWindow{
		size:       size,
		samples:    make(map[string][]time.Duration),
		cursor:     make(map[string]int),
		last:       make(map[string]time.Duration),
		indicators: make(map[string]int),
	}
}

func (w *StageWindow) Observe(stage string, d time.Duration) {
	if stage == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last[stage] = d
	buf := w.samples[stage]
	if len(buf) < w.size {
		w.samples[stage] = append(buf, d)
		return
	}
	i := w.cursor[stage]
	buf[i] = d
	w.cursor[stage] = (i + 1) % w.size
}

// ObserveIndicator counts a named event that has no latency, such as which
// pacing tier produced an estimate.
func (w *StageWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *StageWindow) Snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageStats, 0, len(w.samples)),
	}
	for _, stage := range slices.Sorted(maps.Keys(w.samples)) {
		buf := w.samples[stage]
		if len(buf) == 0 {
			continue
		}
		snap.Stages = append(snap.Stages, summarise(stage, slices.Clone(buf), w.last[stage]))
	}
	for _, name := range slices.Sorted(maps.Keys(w.indicators)) {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: w.indicators[name]})
	}
	return snap
}

func summarise(stage string, buf []time.Duration, last time.Duration) StageStats {
	slices.Sort(buf)
	var sum time.Duration
	for _, d := range buf {
		sum += d
	}
	target := stageTargetP95(stage)
	over := 0
	if target > 0 {
		for _, d := range buf {
			if d > target {
				over++
			}
		}
	}
	return StageStats{
		Stage:       stage,
		Samples:     len(buf),
		LastMS:      millis(last),
		AvgMS:       millis(sum / time.Duration(len(buf))),
		P50MS:       millis(percentile(buf, 50)),
		P95MS:       millis(percentile(buf, 95)),
		MaxMS:       millis(buf[len(buf)-1]),
		TargetP95MS: millis(target),
		OverTarget:  over,
	}
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) / 100 * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}

func millis(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Microsecond)/10) / 100
}

// stageTargetP95 is the latency budget reported next to each stage.
func stageTargetP95(stage string) time.Duration {
	switch stage {
	case StageGeneration:
		return 2500 * time.Millisecond
	case StageSynthesis, StageReplay:
		return 1500 * time.Millisecond
	default:
		return 0
	}
}
