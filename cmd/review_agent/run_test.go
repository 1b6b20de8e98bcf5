package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// keep developer credentials out of the tests
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OLLAMA_HOST", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "App.tsx", "export default function App() { return null }")

	out, err := execute(t, "run", "--dry-run", "--root", dir, "App.tsx", "package.json")
	require.NoError(t, err)

	assert.Contains(t, out, "ANALYSE DE App.tsx")
	assert.Contains(t, out, "package.json not found, skipping")
	assert.Contains(t, out, "1 written, 1 skipped, 0 failed")

	fixed := readFile(t, dir, "FIXED_App.tsx")
	assert.True(t, strings.HasPrefix(fixed, "REVIEWED:"))
	assert.Contains(t, fixed, "export default function App()")
	assert.Contains(t, fixed, "Dark Gold", "the design reviewer's answer is written")
	assert.NotContains(t, fixed, "portefeuille", "the boss report is not written")

	_, err = os.Stat(filepath.Join(dir, "FIXED_package.json"))
	assert.True(t, os.IsNotExist(err))

	// the original is untouched
	assert.Equal(t, "export default function App() { return null }", readFile(t, dir, "App.tsx"))
}

func TestRunCommand_PersistLastStage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "App.tsx", "code")

	_, err := execute(t, "run", "--dry-run", "--root", dir, "--persist-stage", "-1", "App.tsx")
	require.NoError(t, err)

	assert.Contains(t, readFile(t, dir, "FIXED_App.tsx"), "portefeuille")
}

func TestRunCommand_OutputPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.js", "x")

	_, err := execute(t, "run", "--dry-run", "--root", dir, "--output-prefix", "REVIEWED_", "index.js")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "REVIEWED_index.js"))
	assert.NoError(t, err)
}

func TestRunCommand_NothingFound(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "run", "--dry-run", "--root", dir)
	require.NoError(t, err, "missing targets are skipped, not failed")
	assert.Contains(t, out, "App.tsx not found, skipping")
	assert.Contains(t, out, "0 written, 2 skipped, 0 failed")
}

func TestRunCommand_AllTargetsFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "App.tsx", "code")
	// a regular file where the output directory should be
	writeFile(t, dir, "blocked", "")

	out, err := execute(t, "run", "--dry-run", "--root", dir, "--output-prefix", "blocked/", "App.tsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 targets failed")
	assert.Contains(t, out, "0 written, 0 skipped, 1 failed")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown provider", args: []string{"run", "--provider", "openai"}, wantErr: "Provider"},
		{name: "gemini without key", args: []string{"run", "--provider", "gemini"}, wantErr: "GEMINI_API_KEY"},
		{name: "missing root", args: []string{"run", "--dry-run", "--root", "/nonexistent/review/root"}, wantErr: "root directory not found"},
		{name: "persist stage out of range", args: []string{"run", "--dry-run", "--persist-stage", "9"}, wantErr: "out of range"},
		{name: "missing config file", args: []string{"run", "--config", "/nonexistent/config.yaml"}, wantErr: "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shim.js", "a;;b")
	writeFile(t, dir, "review.yaml", "targets:\n  - shim.js\nprovider: stub\nroot: "+dir+"\nconcurrency: 2\n")

	out, err := execute(t, "run", "--config", filepath.Join(dir, "review.yaml"), "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "stage 3 (design) is written")
	assert.Contains(t, out, "[IA BUILD]")
	_, err = os.Stat(filepath.Join(dir, "FIXED_shim.js"))
	assert.NoError(t, err)
}

func TestRunCommand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "x")
	writeFile(t, dir, "b.js", "y")
	writeFile(t, dir, "review.json", `{"targets": ["a.js"], "provider": "stub", "root": "`+dir+`"}`)

	_, err := execute(t, "run", "--config", filepath.Join(dir, "review.json"), "b.js")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "FIXED_b.js"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "FIXED_a.js"))
	assert.True(t, os.IsNotExist(err), "positional targets replace the configured ones")
}
