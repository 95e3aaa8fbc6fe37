package ui

import (
	"strings"
)

// Sparkline renders a text-based throughput chart using Unicode block
// characters. Samples live in a ring buffer; rendering walks oldest to
// newest and scales against the buffer maximum.
type Sparkline struct {
	samples []float64
	width   int
	head    int
	count   int
	max     float64
}

// SparklineChars are the eight block characters, empty to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// NewSparkline creates a sparkline holding width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 60
	}
	return &Sparkline{
		samples: make([]float64, width),
		width:   width,
	}
}

// Add appends a sample, overwriting the oldest once the buffer is full.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % s.width
	s.count++

	if value > s.max {
		s.max = value
	}

	// Old peaks eventually fall out of the buffer.
	if s.count%s.width == 0 {
		s.recalculateMax()
	}
}

// recalculateMax rescans the buffer for the current maximum.
func (s *Sparkline) recalculateMax() {
	s.max = 0
	for _, v := range s.samples {
		if v > s.max {
			s.max = v
		}
	}
	if s.max < 1 {
		s.max = 1
	}
}

// Render returns the sparkline at full buffer width.
func (s *Sparkline) Render() string {
	return s.renderWindow(s.width)
}

// RenderWithWidth returns the most recent width samples, for when the
// terminal is narrower than the buffer.
func (s *Sparkline) RenderWithWidth(width int) string {
	if width <= 0 || width >= s.width {
		return s.renderWindow(s.width)
	}
	return s.renderWindow(width)
}

// renderWindow renders the trailing window of the given width. Positions
// past the samples collected so far render as spaces.
func (s *Sparkline) renderWindow(width int) string {
	if s.count == 0 {
		return strings.Repeat(string(SparklineChars[0]), width)
	}

	if s.max <= 0 {
		s.recalculateMax()
	}

	numSamples := min(s.count, s.width)
	skip := 0
	if numSamples > width {
		skip = numSamples - width
	}

	start := 0
	if s.count >= s.width {
		start = s.head
	}

	var sb strings.Builder
	sb.Grow(width * 3)

	rendered := 0
	for i := 0; i < s.width && rendered < width; i++ {
		if i < skip {
			continue
		}

		if i >= numSamples && s.count < s.width {
			sb.WriteRune(' ')
			rendered++
			continue
		}

		idx := (start + i) % s.width
		sb.WriteRune(s.charFor(s.samples[idx]))
		rendered++
	}

	for rendered < width {
		sb.WriteRune(' ')
		rendered++
	}

	return sb.String()
}

// charFor scales a value against the buffer maximum and picks the block
// character for it.
func (s *Sparkline) charFor(value float64) rune {
	if s.max <= 0 {
		return SparklineChars[0]
	}
	scaled := value / s.max
	idx := int(scaled * float64(len(SparklineChars)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(SparklineChars) {
		idx = len(SparklineChars) - 1
	}
	return SparklineChars[idx]
}

// Clear resets the sparkline.
func (s *Sparkline) Clear() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head = 0
	s.count = 0
	s.max = 0
}

// Count returns the number of samples added.
func (s *Sparkline) Count() int {
	return s.count
}

// Max returns the current maximum value.
func (s *Sparkline) Max() float64 {
	return s.max
}
