package watch

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_FirstEventPasses(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)
	now := time.Now()

	assert.True(t, d.Accept("a.go", now))
	assert.Zero(t, d.Suppressed())
}

func TestDebouncer_RapidRepeatsCollapseToOne(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)
	base := time.Now()

	emitted := 0
	for i := 0; i < 10; i++ {
		if d.Accept("a.go", base.Add(time.Duration(i)*10*time.Millisecond)) {
			emitted++
		}
	}

	assert.Equal(t, 1, emitted, "10 rapid events should collapse to 1")
	assert.Equal(t, uint64(9), d.Suppressed())
}

func TestDebouncer_SpacedEventsAllPass(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	base := time.Now()

	emitted := 0
	for i := 0; i < 5; i++ {
		if d.Accept("a.go", base.Add(time.Duration(i)*150*time.Millisecond)) {
			emitted++
		}
	}

	assert.Equal(t, 5, emitted, "events spaced past the window all pass")
	assert.Zero(t, d.Suppressed())
}

func TestDebouncer_PathsAreIndependent(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)
	now := time.Now()

	assert.True(t, d.Accept("a.go", now))
	assert.True(t, d.Accept("b.go", now), "a different path is not suppressed")
	assert.False(t, d.Accept("a.go", now.Add(time.Millisecond)))
	assert.False(t, d.Accept("b.go", now.Add(time.Millisecond)))
	assert.Equal(t, uint64(2), d.Suppressed())
}

func TestDebouncer_WindowBoundary(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)
	base := time.Now()

	assert.True(t, d.Accept("a.go", base))
	assert.False(t, d.Accept("a.go", base.Add(499*time.Millisecond)), "just inside still suppressed")
	assert.True(t, d.Accept("a.go", base.Add(500*time.Millisecond)), "exactly the window passes")
}

func TestDebouncer_ZeroWindowDisablesSuppression(t *testing.T) {
	d := NewDebouncer(0)
	now := time.Now()

	for i := 0; i < 5; i++ {
		assert.True(t, d.Accept("a.go", now))
	}
	assert.Zero(t, d.Suppressed())
}

func TestDebouncer_PrunesExpiredEntries(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	base := time.Now()

	// Distinct paths at strictly increasing times: by the time the sweep
	// runs, all but the newest entries are far past the window.
	for i := 0; i < pruneCheckInterval; i++ {
		d.Accept(fmt.Sprintf("file-%d.go", i), base.Add(time.Duration(i)*2*time.Millisecond))
	}

	assert.Less(t, d.Len(), pruneCheckInterval, "expired entries should be swept")
}
