package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasTopKFlag(t *testing.T) {
	flag := queryCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag, "top-k flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestQueryCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "test query"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Results:")
	assert.Contains(t, buf.String(), "https://example.com/doc#chunk-0")
}

func TestQueryCmd_PassesOptions(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := &mockSearchService{}
	searchService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "-n", "5", "--mode", "keyword", "--rerank", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryTopK = 10
		queryMode = ""
		queryRerank = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 5, mock.lastOpts.TopK)
	assert.Equal(t, domain.SearchModeKeyword, mock.lastOpts.Mode)
	assert.True(t, mock.lastOpts.Rerank)
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--json", "test query"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"Score\"")
}

func TestQueryCmd_ServiceNotConfigured(t *testing.T) {
	oldService := searchService
	searchService = nil
	defer func() {
		searchService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestQueryCmd_ServiceError(t *testing.T) {
	oldService := searchService
	searchService = &mockSearchServiceError{}
	defer func() {
		searchService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestOutputQueryTable_Empty(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputQueryTable(rootCmd, nil)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No relevant results.")
}

func TestParseKindFlag(t *testing.T) {
	assert.Equal(t, domain.CollectionText, parseKindFlag("text"))
	assert.Equal(t, domain.CollectionImage, parseKindFlag("image"))
	assert.Equal(t, domain.CollectionText, parseKindFlag("bogus"))
}

func TestSnippetOf(t *testing.T) {
	assert.Equal(t, "short", snippetOf("short", 10))
	assert.Equal(t, "abcde...", snippetOf("abcdefgh", 5))
}
