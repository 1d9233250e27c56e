package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExplainCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		descriptorPath(t, "queries.cue"),
		"select a from t where b > 5",
	})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "normalized: SELECT a FROM t WHERE b > 5")
	assert.Contains(t, output, "Filter (b@1 > 5)")
	assert.Contains(t, output, "Scan t [a, b]")
}

func TestExplainJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewExplainCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		descriptorPath(t, "queries.cue"),
		"SELECT COUNT(*) FROM t",
	})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ExplainResult
	require.NoError(t, json.Unmarshal(raw, &result))

	assert.Equal(t, "SELECT COUNT(*) FROM t", result.Normalized)
	assert.Contains(t, result.Plan, "Aggregate")
}

func TestExplainRejectsBadSyntax(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExplainCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "queries.cue"), "SELEC a FROM t"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "UNSUPPORTED_SYNTAX")
}

func TestExplainRejectsUnknownTable(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExplainCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{descriptorPath(t, "queries.cue"), "SELECT a FROM nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "SCHEMA_MISMATCH")
}
