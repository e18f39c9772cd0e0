package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "serve", "browse", "graph", "migrate", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()
	flags := []string{
		"config", "port", "session-secret", "secure-cookie", "watch", "store-driver", "store-path", "store-dsn",
		"persist-interval", "seed-file", "log-level", "log-format", "base-url", "layout", "output",
	}
	for _, name := range flags {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("o"))
}

func TestRootCmd_FlagsReachCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "graphs.db")

	out, _, err := run(t, "migrate", "--store-path", path, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": 1`)
	assert.FileExists(t, path)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mydat.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: state/mydat.db\noutput: markdown\n"), 0600))

	out, _, err := run(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "# Migrations")
	assert.FileExists(t, filepath.Join(dir, "state", "mydat.db"), "store path is relative to the config file")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "log level", args: []string{"migrate", "--log-level", "loud"}, errMsg: "log.level"},
		{name: "output", args: []string{"migrate", "-o", "yaml"}, errMsg: "output must be one of"},
		{name: "driver", args: []string{"migrate", "--store-driver", "oracle"}, errMsg: "store.driver"},
		{name: "missing config file", args: []string{"migrate", "--config", "/nonexistent/mydat.yaml"}, errMsg: "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "mydat "+Version+"\n", out)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := run(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "mydat")
		})
	}

	_, _, err := run(t, "completion", "tcsh")
	assert.Error(t, err)
}
