package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pydeps/cmd/pydeps/commands"
	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
)

// run executes the root command with an explicit empty config file so the
// developer's own .pydeps.yaml never leaks into tests.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "pydeps.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{}\n"), 0o600))

	var stdout, stderr bytes.Buffer

	root := commands.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writePy(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRoot_Help(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args    []string
		wantOut string
		wantErr bool
	}{
		{args: []string{"--help"}, wantOut: "pydeps reads a Python source file"},
		{args: []string{"scan", "--help"}, wantOut: "--names-only"},
		{args: []string{"catalog", "--help"}, wantOut: "--check"},
		{args: []string{"mcp", "--help"}, wantOut: "pydeps_scan_file"},
		{args: []string{"version"}, wantOut: "pydeps "},
		{args: []string{"unknown"}, wantErr: true},
	}

	for _, tt := range tests {
		out, _, err := run(t, "", tt.args...)
		if tt.wantErr {
			require.Error(t, err, tt.args)

			continue
		}

		require.NoError(t, err, tt.args)
		assert.Contains(t, out, tt.wantOut, tt.args)
	}
}

func TestScan_Text(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "", "scan", "--no-color", writePy(t, "import os\nimport requests\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "requests")
	assert.Contains(t, out, "pip install requests")
	assert.NotContains(t, out, "\x1b[")
}

func TestScan_JSONValidates(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "", "scan", "--format", "json", "--python", "3.8",
		writePy(t, "import flask\nfrom sqlalchemy import x\ndef broken(:\n"))
	require.NoError(t, err)

	var rep deps.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))

	assert.Equal(t, "fallback", rep.Mode)
	assert.Equal(t, "3.8", rep.Python)
	assert.Equal(t, []string{"flask", "sqlalchemy"}, rep.External)

	validated, _, err := run(t, out, "validate", "--no-color", "-")
	require.NoError(t, err)
	assert.Contains(t, validated, "report is valid (stdin)")
}

func TestScan_NothingToInstall(t *testing.T) {
	t.Parallel()

	path := writePy(t, "import sys\nimport json\n")

	out, _, err := run(t, "", "scan", "--format", "plain", path)
	require.NoError(t, err)
	assert.Equal(t, "No external libraries detected.\n", out)

	out, _, err = run(t, "", "scan", "--command-only", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScan_NamesAndCommandOnly(t *testing.T) {
	t.Parallel()

	path := writePy(t, "import pip\nimport yaml\nimport attr\n")

	out, _, err := run(t, "", "scan", "--names-only", path)
	require.NoError(t, err)
	assert.Equal(t, "attr yaml\n", out)

	out, _, err = run(t, "", "scan", "--command-only", path)
	require.NoError(t, err)
	assert.Equal(t, "pip install attr yaml\n", out)

	_, _, err = run(t, "", "scan", "--names-only", "--command-only", path)
	require.Error(t, err)
}

func TestScan_Save(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, stderr, err := run(t, "", "scan", "--save", "--output-dir", dir, "--format", "json",
		writePy(t, "import requests\n"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Saved to")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, regexp.MustCompile(`^app_dependencies_\d{8}_\d{6}\.txt$`), entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "Detected external libraries:\n\n- requests\n\n\nInstallation command:\npip install requests", string(data))
}

func TestScan_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, "", "scan", filepath.Join(t.TempDir(), "missing.py"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = run(t, "", "scan", "--python", "3.99", writePy(t, "import os\n"))
	require.ErrorIs(t, err, catalog.ErrUnknownVersion)

	_, _, err = run(t, "", "scan", "--format", "xml", writePy(t, "import os\n"))
	require.ErrorIs(t, err, deps.ErrUnsupportedFormat)

	_, _, err = run(t, "", "scan")
	require.Error(t, err)
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "", "catalog", "--python", "3.11")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(out, "\n"), "tomllib")

	out, _, err = run(t, "", "catalog", "--python", "3.10", "--check", "tomllib,requests", "--check", "os")
	require.NoError(t, err)
	assert.Contains(t, out, "PYTHON 3.10")
	assert.Regexp(t, `tomllib\s+│\s+external`, out)
	assert.Regexp(t, `os\s+│\s+stdlib`, out)

	out, _, err = run(t, "", "catalog", "--versions")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(catalog.Versions(), "\n")+"\n", out)
}

func TestValidate_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source": "x.py"}`), 0o600))

	_, _, err := run(t, "", "validate", path)
	require.ErrorIs(t, err, deps.ErrInvalidReport)

	_, _, err = run(t, "", "validate", filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
}
