package analyze

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFlagDefaults(t *testing.T) {
	cmd := NewAnalyzeCmd()

	for flag, def := range map[string]string{
		"mode":      "function",
		"python":    "python3",
		"timeout":   "300",
		"log-level": "warn",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestAnalyzeEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PYLENS_PYTHON", "/usr/bin/python3.12")
	t.Setenv("PYLENS_TIMEOUT", "60s")

	cmd := NewAnalyzeCmd()
	assert.Equal(t, "/usr/bin/python3.12", cmd.Flags().Lookup("python").DefValue)
	assert.Equal(t, "60", cmd.Flags().Lookup("timeout").DefValue)
}

func TestAnalyzeRejectsConflictingStrategies(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := NewAnalyzeCmd()
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"target.py", "--multithreaded", "--fine-grained"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	// Failures still honor the JSON output contract.
	var payload map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Contains(t, payload["error"], "mutually exclusive")
	assert.NotEmpty(t, payload["kind"])
}

func TestAnalyzeEmitsJSONErrorForBadRulesFile(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := NewAnalyzeCmd()
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"target.py", "--rules", "/nonexistent/rules.yaml"})

	err := cmd.Execute()
	require.Error(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.NotEmpty(t, payload["error"])
	assert.NotEmpty(t, payload["kind"])
}
