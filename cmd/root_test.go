package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adbforward/pkg/logging"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)
	assert.Equal(t, testVersion, rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "adbforward", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.RunE, "running without a subcommand starts the service")
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"config", "debug", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "adbforward version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "adbforward version 1.0.0\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()
	rootCmd.Version = "2.0.0"

	var buf bytes.Buffer
	versionCmd := newVersionCmd()
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "adbforward version 2.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, expected := range []string{"version", "devices", "fetch-tools", "self-update"} {
		assert.True(t, found[expected], "expected subcommand %s to be registered", expected)
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	testRootCmd := &cobra.Command{
		Use:          rootCmd.Use,
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})
	require.NoError(t, testRootCmd.Execute())

	output := buf.String()
	assert.True(t, strings.Contains(output, "adbforward"))
	assert.Contains(t, output, "9943 and 9944")
}

func TestResolveLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		want    logging.LogLevel
		wantErr bool
	}{
		{name: "info", want: logging.LevelInfo},
		{name: "WARN", want: logging.LevelWarn},
		{name: "error", want: logging.LevelError},
		{name: "error", debug: true, want: logging.LevelDebug},
		{name: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLogLevel(tt.name, tt.debug)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
