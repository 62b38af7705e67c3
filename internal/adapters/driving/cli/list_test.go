package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd_Use(t *testing.T) {
	assert.Equal(t, "list", listCmd.Use)
}

func TestListCmd_HasSinceFlag(t *testing.T) {
	flag := listCmd.Flags().Lookup("since")
	require.NotNil(t, flag, "since flag should exist")
	assert.Equal(t, "", flag.DefValue)
}

func TestListCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "https://example.com/doc")
	assert.Contains(t, buf.String(), "2 item(s)")
	assert.Contains(t, buf.String(), "A mock summary.")
}

func TestListCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		listJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"key\"")
	assert.Contains(t, buf.String(), "\"members\": 2")
}

func TestListCmd_ServiceNotConfigured(t *testing.T) {
	oldService := libraryService
	libraryService = nil
	defer func() {
		libraryService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "library service not configured")
}

func TestFormatAdded(t *testing.T) {
	assert.Equal(t, "not-a-date", formatAdded("not-a-date"))
	assert.NotEmpty(t, formatAdded("2025-01-10T12:00:00Z"))
}
