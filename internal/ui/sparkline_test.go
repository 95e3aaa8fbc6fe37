package ui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNewSparkline_DefaultWidth(t *testing.T) {
	// Given: a non-positive width
	s := NewSparkline(0)

	// Then: falls back to the default buffer size
	assert.Equal(t, 60, utf8.RuneCountInString(s.Render()))
}

func TestSparkline_EmptyRendersBaseline(t *testing.T) {
	// Given: a sparkline with no samples
	s := NewSparkline(10)

	// When: rendering
	out := s.Render()

	// Then: all positions show the lowest block
	assert.Equal(t, strings.Repeat(string(SparklineChars[0]), 10), out)
}

func TestSparkline_PeakRendersFullBlock(t *testing.T) {
	// Given: samples with a clear peak
	s := NewSparkline(5)
	s.Add(1)
	s.Add(2)
	s.Add(10)

	// When: rendering
	out := s.Render()

	// Then: the peak maps to the tallest block
	assert.Contains(t, out, string(SparklineChars[len(SparklineChars)-1]))
	assert.Equal(t, float64(10), s.Max())
}

func TestSparkline_RingBufferWraps(t *testing.T) {
	// Given: more samples than the buffer holds
	s := NewSparkline(4)
	for i := 1; i <= 10; i++ {
		s.Add(float64(i))
	}

	// Then: count keeps growing and the render stays at buffer width
	assert.Equal(t, 10, s.Count())
	assert.Equal(t, 4, utf8.RuneCountInString(s.Render()))
}

func TestSparkline_RenderWithWidth_Narrower(t *testing.T) {
	// Given: a full buffer
	s := NewSparkline(8)
	for i := 1; i <= 8; i++ {
		s.Add(float64(i))
	}

	// When: rendering at a narrower width
	out := s.RenderWithWidth(4)

	// Then: output is exactly that wide and ends at the newest sample
	assert.Equal(t, 4, utf8.RuneCountInString(out))
	assert.Equal(t, string(SparklineChars[len(SparklineChars)-1]), string([]rune(out)[3]))
}

func TestSparkline_RenderWithWidth_PadsWhenSparse(t *testing.T) {
	// Given: fewer samples than the render width
	s := NewSparkline(10)
	s.Add(5)

	// When: rendering at a width below the buffer
	out := s.RenderWithWidth(6)

	// Then: unreached positions render as spaces
	assert.Equal(t, 6, utf8.RuneCountInString(out))
	assert.Contains(t, out, " ")
}

func TestSparkline_Clear(t *testing.T) {
	// Given: a sparkline with samples
	s := NewSparkline(5)
	s.Add(3)
	s.Add(7)

	// When: clearing
	s.Clear()

	// Then: state resets
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, float64(0), s.Max())
	assert.Equal(t, strings.Repeat(string(SparklineChars[0]), 5), s.Render())
}
