package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// mockLibraryPartialDelete reports a partially failed group deletion.
type mockLibraryPartialDelete struct {
	mockLibraryService
}

func (m *mockLibraryPartialDelete) Delete(context.Context, domain.CollectionKind, string) (domain.DeleteTally, error) {
	return domain.DeleteTally{Deleted: 4, Failed: 1, FailedIDs: []string{"id-3"}}, nil
}

func TestDeleteCmd_Use(t *testing.T) {
	assert.Equal(t, "delete [id-or-group]", deleteCmd.Use)
}

func TestDeleteCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"delete", "https://example.com/doc"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "deleted 2 item(s)")
}

func TestDeleteCmd_PartialFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	libraryService = &mockLibraryPartialDelete{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"delete", "https://example.com/doc"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "id-3")
	assert.Contains(t, err.Error(), "1 member(s) could not be deleted")
}

func TestSummarizeCmd_Use(t *testing.T) {
	assert.Equal(t, "summarize [id]", summarizeCmd.Use)
}

func TestSummarizeCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"summarize", "item-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "(cached)")
	assert.Contains(t, buf.String(), "A mock summary.")
}

func TestSummarizeCmd_ServiceNotConfigured(t *testing.T) {
	oldService := libraryService
	libraryService = nil
	defer func() {
		libraryService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"summarize", "item-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "library service not configured")
}
