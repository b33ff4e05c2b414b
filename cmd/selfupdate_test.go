package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", selfUpdateCmd.Use)
	assert.NotEmpty(t, selfUpdateCmd.Short)
	assert.NotEmpty(t, selfUpdateCmd.Long)
	assert.NotNil(t, selfUpdateCmd.RunE)
}

func TestRunSelfUpdateWithDevelopmentVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	for _, v := range []string{"dev", ""} {
		rootCmd.Version = v
		err := runSelfUpdate(nil, []string{})
		require.Error(t, err, "version %q", v)
		assert.Contains(t, err.Error(), "cannot self-update a development version")
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()
	var buf bytes.Buffer
	selfUpdateCmd.SetOut(&buf)
	selfUpdateCmd.SetErr(&buf)
	selfUpdateCmd.SetArgs([]string{"--help"})
	require.NoError(t, selfUpdateCmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Checks for the latest release")
	assert.Contains(t, output, "self-update")
}

func TestRunSelfUpdateWithoutReleaseRepository(t *testing.T) {
	originalVersion, originalSlug := rootCmd.Version, githubRepoSlug
	defer func() { rootCmd.Version, githubRepoSlug = originalVersion, originalSlug }()

	rootCmd.Version = "1.0.0"
	githubRepoSlug = ""

	err := runSelfUpdate(nil, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not name a release repository")
}

// The update itself is not exercised: it needs network access and replaces
// the running binary.
