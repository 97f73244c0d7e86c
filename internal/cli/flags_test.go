package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCommonFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &CommandFlags{}
	RegisterCommonFlags(cmd, flags)

	for _, name := range []string{"output", "no-headers", "quiet", "debug", "config-path", "endpoint"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s should be registered", name)
	}

	assert.Equal(t, "table", cmd.Flags().Lookup("output").DefValue)
	assert.Equal(t, "o", cmd.Flags().Lookup("output").Shorthand)
	assert.Equal(t, "q", cmd.Flags().Lookup("quiet").Shorthand)
	assert.Equal(t, "", cmd.Flags().Lookup("endpoint").DefValue)
}

func TestCommandFlagsToExecutorOptions(t *testing.T) {
	flags := &CommandFlags{
		OutputFormat: "json",
		NoHeaders:    true,
		Quiet:        true,
		Debug:        true,
		ConfigPath:   "/tmp/oc-config",
		Endpoint:     "https://gateway.example.com/mcp",
	}

	options, err := flags.ToExecutorOptions()
	require.NoError(t, err)

	assert.Equal(t, OutputFormatJSON, options.Format)
	assert.True(t, options.NoHeaders)
	assert.True(t, options.Quiet)
	assert.True(t, options.Debug)
	assert.Equal(t, "/tmp/oc-config", options.ConfigPath)
	assert.Equal(t, "https://gateway.example.com/mcp", options.Endpoint)
}

func TestCommandFlagsToExecutorOptionsInvalidFormat(t *testing.T) {
	flags := &CommandFlags{OutputFormat: "wide"}

	_, err := flags.ToExecutorOptions()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
