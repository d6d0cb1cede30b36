package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "rboxdist", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "rotated (oriented) bounding boxes")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandNoArgs(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "rboxdist version dev")
}

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	for _, expected := range []string{"iou", "gwd", "kld", "convert", "match", "bench", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, errOut, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, errOut, "unknown flag")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "config", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "config", "--config", "/non/existent/rboxdist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestVerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, "iou", "-v", "-a", "0,0,10,10,0", "-b", "0,0,10,10,0")
	require.NoError(t, err)

	assert.NotContains(t, out, "level")
	assert.Contains(t, errOut, `"level":"DEBUG"`)
	assert.Contains(t, errOut, "Computing IoU")
}

func TestSubcommandHelp(t *testing.T) {
	for _, name := range []string{"iou", "gwd", "kld", "convert", "match", "bench", "config"} {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(t, name, "--help")
			require.NoError(t, err)
			assert.Contains(t, out, "Usage:")
			assert.Contains(t, out, "rboxdist "+name)
		})
	}
}

func TestSubcommandsRejectArgs(t *testing.T) {
	for _, sub := range NewRootCommand().Commands() {
		require.NotNil(t, sub.Args, sub.Name())
		assert.Error(t, sub.Args(sub, []string{"extra"}), sub.Name())
	}
}
