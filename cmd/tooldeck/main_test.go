package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tooldeck version ")
}

func TestToolsCommand_JSON(t *testing.T) {
	out, err := execute(t, "tools", "--json")
	require.NoError(t, err)

	var tools []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tools))
	assert.NotEmpty(t, tools)
	assert.Equal(t, "bulk-shipment-labeling-optimizer", tools[0]["id"])
}

func TestOpenAPICommand(t *testing.T) {
	out, err := execute(t, "openapi")
	require.NoError(t, err)
	assert.Contains(t, out, `"openapi": "3.0.3"`)
}

func TestSessionRm_NeedsKeys(t *testing.T) {
	_, err := execute(t, "session", "rm")
	assert.ErrorContains(t, err, "--all")
}
