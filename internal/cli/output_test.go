package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/symbolic"
	"github.com/rklop/SURF-2025/internal/witness"
)

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitFailure, "not equivalent")
	assert.Equal(t, "not equivalent", plain.Error())
	assert.Equal(t, ExitFailure, GetExitCode(plain))

	cause := errors.New("disk gone")
	wrapped := WrapExitError(ExitCommandError, "cannot read", cause)
	assert.Equal(t, "cannot read: disk gone", wrapped.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	// Wrapping an ExitError deeper still surfaces its code.
	deep := fmt.Errorf("outer: %w", wrapped)
	assert.Equal(t, ExitCommandError, GetExitCode(deep))

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("anonymous")))
}

func TestFormatterTextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.False(t, f.JSON())
	require.NoError(t, f.Success("all good"))
	require.NoError(t, f.Error("E003", "bad input", nil))

	output := buf.String()
	assert.Contains(t, output, "all good")
	assert.Contains(t, output, "Error [E003]: bad input")
}

func TestFormatterJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.True(t, f.JSON())
	require.NoError(t, f.Success(map[string]int{"tables": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error("E004", "solver gave up", map[string]int{"bound": 2}))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
	assert.Equal(t, "solver gave up", resp.Error.Message)
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("checked %d pairs", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "checked 3 pairs\n", errOut.String())

	f.Verbose = false
	errOut.Reset()
	f.VerboseLog("silent")
	assert.Empty(t, errOut.String())
}

func TestInstanceJSON(t *testing.T) {
	sch, err := schema.New([]schema.Table{
		{Name: "t", Columns: []schema.Column{
			{Name: "a", Type: schema.TypeInt, Nullable: true},
			{Name: "s", Type: schema.TypeText, Nullable: true},
		}},
	})
	require.NoError(t, err)

	ce := &witness.Counterexample{
		Schema: sch,
		Rows: [][][]symbolic.Value{
			{
				{symbolic.IntValue(7), symbolic.TextValue("x")},
				{{Null: true, Typ: schema.TypeInt}, symbolic.TextValue("")},
			},
		},
	}

	got := InstanceJSON(ce)
	require.Contains(t, got, "t")
	require.Len(t, got["t"], 2)
	assert.Equal(t, []any{int64(7), "x"}, got["t"][0])
	assert.Equal(t, []any{nil, ""}, got["t"][1])
}
