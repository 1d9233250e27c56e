package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidDescriptor(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "queries.cue")})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "valid: 1 table(s), 2 check(s)")
}

func TestValidateValidDescriptorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "queries.cue")})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Tables)
	assert.Equal(t, 2, result.Checks)
	assert.Empty(t, result.Warnings)
}

func TestValidateReportsCycleWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "self-ref.cue")})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "valid: 1 table(s), 0 check(s)")
	// manager_id is nullable, so the self reference is escapable.
	assert.Contains(t, output, "info")
	assert.Contains(t, output, "emp")
}

func TestValidateInvalidDescriptor(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "dangling-fk.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "invalid: 1 error(s)")
	assert.Contains(t, output, "E107")
}

func TestValidateMissingFile(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"does-not-exist.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
