package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessagePrefersArgument(t *testing.T) {
	analyzeMessage = "from flag"
	defer func() { analyzeMessage = "" }()

	msg, err := readMessage(strings.NewReader("from stdin"), []string{"from arg"})
	require.NoError(t, err)
	assert.Equal(t, "from arg", msg)

	msg, err = readMessage(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from flag", msg)

	analyzeMessage = ""
	msg, err = readMessage(strings.NewReader("  from stdin\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", msg)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "triage dev")
}
