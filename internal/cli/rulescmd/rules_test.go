package rulescmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListShowsBuiltinRules(t *testing.T) {
	cmd := NewRulesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list"})

	require.NoError(t, cmd.Execute())

	listing := out.String()
	assert.Contains(t, listing, "loop_optimization")
	assert.Contains(t, listing, "cache_suggestion")
	assert.Contains(t, listing, "function_call_optimization")
	assert.Contains(t, listing, "structural")
	assert.Contains(t, listing, "statistics")
}

func TestListMissingRulesFile(t *testing.T) {
	cmd := NewRulesCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"list", "--rules", "/nonexistent/rules.yaml"})

	assert.Error(t, cmd.Execute())
}
