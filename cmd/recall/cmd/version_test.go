package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkb/recall/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	// Given: the version command
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	// When: executing without flags
	err := cmd.Execute()

	// Then: the full version string is printed
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "recall "+version.Version)
	assert.Contains(t, buf.String(), "commit:")
	assert.Contains(t, buf.String(), "go:")
}

func TestVersionCmd_Short(t *testing.T) {
	// Given: the version command with --short
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--short"})

	// When: executing
	err := cmd.Execute()

	// Then: only the bare version appears
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", buf.String())
}

func TestVersionCmd_JSON(t *testing.T) {
	// Given: the version command with --json
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	// When: executing
	err := cmd.Execute()

	// Then: output is structured build info
	require.NoError(t, err)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
}
