package ui

import (
	"sync"
	"time"
)

// speedMeter tracks items/sec over the life of a stage. Samples are taken
// at most every 500ms to keep the numbers readable.
type speedMeter struct {
	lastCount int
	lastCalc  time.Time
	current   float64
	avg       float64
	peak      float64
	samples   int
	spark     *Sparkline
}

func newSpeedMeter() *speedMeter {
	return &speedMeter{
		lastCalc: time.Now(),
		spark:    NewSparkline(60),
	}
}

func (sm *speedMeter) reset() {
	sm.lastCount = 0
	sm.lastCalc = time.Now()
	sm.current = 0
	sm.avg = 0
	sm.peak = 0
	sm.samples = 0
	sm.spark.Clear()
}

func (sm *speedMeter) observe(count int) {
	now := time.Now()
	elapsed := now.Sub(sm.lastCalc)
	if elapsed < 500*time.Millisecond {
		return
	}

	delta := count - sm.lastCount
	if delta > 0 {
		speed := float64(delta) / elapsed.Seconds()
		sm.current = speed

		sm.samples++
		if sm.samples == 1 {
			sm.avg = speed
		} else {
			// Exponential smoothing keeps the average responsive but stable.
			sm.avg = 0.2*speed + 0.8*sm.avg
		}

		if speed > sm.peak {
			sm.peak = speed
		}

		sm.spark.Add(speed)
	}

	sm.lastCount = count
	sm.lastCalc = now
}

// SpeedStats contains speed metrics for display.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats contains a snapshot of current progress.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Speed       SpeedStats
}

// ProgressTracker manages progress state across stages.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu          sync.RWMutex
	stage       Stage
	current     int
	total       int
	currentFile string
	startTime   time.Time
	stageStart  time.Time
	errors      []ErrorEvent
	warnings    []ErrorEvent
	speed       *speedMeter

	// lastETA carries the previous estimate for exponential smoothing.
	lastETA time.Duration
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageScanning,
		startTime:  now,
		stageStart: now,
		speed:      newSpeedMeter(),
	}
}

// SetStage transitions to a new stage, resetting per-stage counters.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.currentFile = ""
	p.stageStart = time.Now()
	p.lastETA = 0
	p.speed.reset()
}

// Update updates progress within the current stage.
func (p *ProgressTracker) Update(current int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if file != "" {
		p.currentFile = file
	}
	p.speed.observe(current)
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Progress returns current progress in [0, 1].
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.total == 0 {
		return 0.0
	}
	progress := float64(p.current) / float64(p.total)
	if progress > 1.0 {
		return 1.0
	}
	return progress
}

// ETA estimates remaining time based on current progress. Takes the write
// lock because the smoothing state advances on every call.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calculateETA()
}

// Elapsed returns time since tracker creation.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.startTime)
}

// Stats returns a snapshot of current statistics.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := 0.0
	if p.total > 0 {
		progress = float64(p.current) / float64(p.total)
		if progress > 1.0 {
			progress = 1.0
		}
	}

	return ProgressStats{
		Stage:       p.stage,
		Current:     p.current,
		Total:       p.total,
		Progress:    progress,
		ETA:         p.calculateETA(),
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
		Speed: SpeedStats{
			Current: p.speed.current,
			Avg:     p.speed.avg,
			Peak:    p.speed.peak,
		},
	}
}

// etaSmoothingFactor weights new estimates against the previous one;
// 0.3 means 30% new value and 70% previous.
const etaSmoothingFactor = 0.3

// calculateETA estimates remaining time with exponential smoothing.
// Must be called with the lock held.
func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	progress := float64(p.current) / float64(p.total)

	if progress <= 0 || progress >= 1.0 {
		return 0
	}

	totalEstimate := time.Duration(float64(elapsed) / progress)
	rawRemaining := totalEstimate - elapsed
	if rawRemaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = rawRemaining
		return rawRemaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(rawRemaining) +
			(1-etaSmoothingFactor)*float64(p.lastETA),
	)
	p.lastETA = smoothed

	return smoothed
}

// Errors returns the list of recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.errors))
	copy(result, p.errors)
	return result
}

// Warnings returns the list of recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.warnings))
	copy(result, p.warnings)
	return result
}

// RenderSparkline returns the throughput sparkline string.
func (p *ProgressTracker) RenderSparkline(width int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if width <= 0 {
		return p.speed.spark.Render()
	}
	return p.speed.spark.RenderWithWidth(width)
}

// SpeedStats returns current speed statistics.
func (p *ProgressTracker) SpeedStats() SpeedStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return SpeedStats{
		Current: p.speed.current,
		Avg:     p.speed.avg,
		Peak:    p.speed.peak,
	}
}
