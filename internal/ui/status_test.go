package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusInfo_Zero(t *testing.T) {
	// Given: zero-valued status info
	info := StatusInfo{}

	// Then: all fields are zero/empty
	assert.Empty(t, info.ProjectRoot)
	assert.Equal(t, 0, info.Documents)
	assert.Equal(t, 0, info.VectorEntries)
	assert.True(t, info.LastIndexed.IsZero())
}

func TestStatusInfo_JSONSerialization(t *testing.T) {
	// Given: populated status info
	info := StatusInfo{
		ProjectRoot:      "/work/corpus",
		Documents:        100,
		VectorEntries:    98,
		LastIndexed:      time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		DocumentsSize:    1024 * 1024,
		KeywordSize:      2 * 1024 * 1024,
		VectorsSize:      10 * 1024 * 1024,
		TotalSize:        13 * 1024 * 1024,
		ModelDimension:   256,
		ModelVocabSize:   4821,
		ModelFingerprint: "a1b2c3d4e5f60718",
		WatcherStatus:    "running",
		ChangesDetected:  42,
	}

	// When: serializing to JSON
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: JSON is valid and contains expected fields
	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "/work/corpus", parsed["project_root"])
	assert.Equal(t, float64(100), parsed["documents"])
	assert.Equal(t, float64(98), parsed["vector_entries"])
	assert.Equal(t, float64(256), parsed["model_dimension"])
	assert.Equal(t, "running", parsed["watcher_status"])
}

func TestStatusRenderer_Render_Basic(t *testing.T) {
	// Given: status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	// When: rendering status info
	info := StatusInfo{
		ProjectRoot:      "/work/my-project",
		Documents:        50,
		VectorEntries:    48,
		LastIndexed:      time.Now(),
		DocumentsSize:    512 * 1024,
		KeywordSize:      1024 * 1024,
		VectorsSize:      5 * 1024 * 1024,
		TotalSize:        6*1024*1024 + 512*1024,
		ModelDimension:   256,
		ModelVocabSize:   3000,
		ModelFingerprint: "deadbeefcafe0123",
		WatcherStatus:    "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: output contains key information
	output := buf.String()
	assert.Contains(t, output, "my-project")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "48")
	assert.Contains(t, output, "ready")
	assert.Contains(t, output, "deadbeefcafe")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	// Given: status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	// When: rendering as JSON
	info := StatusInfo{
		ProjectRoot:   "/work/json-project",
		Documents:     25,
		VectorEntries: 25,
	}

	err := r.RenderJSON(info)
	require.NoError(t, err)

	// Then: output is valid JSON
	var parsed StatusInfo
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "/work/json-project", parsed.ProjectRoot)
	assert.Equal(t, 25, parsed.Documents)
}

func TestStatusRenderer_NoColor(t *testing.T) {
	// Given: status renderer with noColor
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering
	info := StatusInfo{
		ProjectRoot:    "/work/nocolor-project",
		ModelDimension: 128,
		WatcherStatus:  "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: no ANSI codes in output
	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestStatusRenderer_MissingModel(t *testing.T) {
	// Given: status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	// When: rendering a root that was never indexed
	info := StatusInfo{
		ProjectRoot:   "/work/fresh-project",
		WatcherStatus: "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: shows missing model status
	output := buf.String()
	assert.Contains(t, output, "missing")
}

func TestStatusRenderer_WatcherCounters(t *testing.T) {
	// Given: status renderer without color
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering a running watcher with drops
	info := StatusInfo{
		ProjectRoot:        "/work/busy-project",
		WatcherStatus:      "running",
		ChangesDetected:    120,
		DebounceSuppressed: 35,
		QueueDepth:         4,
		QueueDropped:       2,
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: counters appear
	output := buf.String()
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "35")
	assert.Contains(t, output, "Dropped")
}

func TestStatusRenderer_ExternalWatcher(t *testing.T) {
	// Given: status renderer without color
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: another process holds the data directory
	info := StatusInfo{
		ProjectRoot:   "/work/shared-project",
		WatcherStatus: "external",
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: the external holder is called out without counters
	output := buf.String()
	assert.Contains(t, output, "external")
	assert.Contains(t, output, "Another process")
	assert.NotContains(t, output, "Detected:")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatBytes(tt.bytes)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatusRenderer_StorageSizes(t *testing.T) {
	// Given: status renderer without color for easier assertion
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering with storage sizes
	info := StatusInfo{
		ProjectRoot:   "/work/storage-project",
		DocumentsSize: 512 * 1024,
		KeywordSize:   2 * 1024 * 1024,
		VectorsSize:   10 * 1024 * 1024,
		TotalSize:     12*1024*1024 + 512*1024,
	}

	err := r.Render(info)
	require.NoError(t, err)

	// Then: sizes are human-readable
	output := buf.String()
	assert.Contains(t, output, "KB")
	assert.Contains(t, output, "MB")
}
