package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestIngestCmd_Sync(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ingest", "catcatcat01", "oldoldold00", "badbadbad00")

	require.NoError(t, err)
	assert.Contains(t, out, "✓ catcatcat01 (Video catcatcat01): 4 chunks")
	assert.Contains(t, out, "- oldoldold00: already ingested")
	assert.Contains(t, out, "✗ badbadbad00: transcript unavailable")
	assert.Contains(t, out, "Ingested 1, skipped 1, failed 1 (4 chunks added)")
	assert.False(t, mocks.ingest.lastForce)
}

func TestIngestCmd_ForceAsync(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ingest", "--force", "--async", "catcatcat01")

	require.NoError(t, err)
	assert.Contains(t, out, "Started job job-123")
	assert.Contains(t, out, "✓ catcatcat01")
	assert.True(t, mocks.ingest.lastForce)
}

func TestIngestCmd_File(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ingest", "--file", "talk.vtt")

	require.NoError(t, err)
	assert.Equal(t, []string{"talk.vtt"}, mocks.ingest.files)
	assert.Contains(t, out, "✓ local: 2 chunks")
}

func TestIngestCmd_RequiresInput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := run(t, "ingest")
	assert.Error(t, err)
}

func TestIngestCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ingest", "--json", "catcatcat01")

	require.NoError(t, err)
	assert.Contains(t, out, `"source_id": "catcatcat01"`)
	assert.Contains(t, out, `"status": "success"`)
	assert.NotContains(t, out, "Ingested")
}

func TestAskCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ask", "-k", "3", "Why do cats purr?")

	require.NoError(t, err)
	assert.Contains(t, out, "Cats purr when they are content.")
	assert.Contains(t, out, "[1] All About Cats @ 42s (0.87)")
	assert.Contains(t, out, "&t=42s")
	assert.Equal(t, 3, mocks.answer.lastK)
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := run(t, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "search", "-n", "7", "cats")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "Cats purr when happy.")
	assert.Equal(t, 7, mocks.search.lastLimit)
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestSimilarCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "similar", "cats")

	require.NoError(t, err)
	assert.Contains(t, out, "All About Cats (max 0.91, avg 0.80, 3 passages)")
	assert.Equal(t, 5, mocks.search.lastLimit)
}

func TestRebuildCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "Index rebuilt: 0 -> 12 chunks")

	mocks.index.err = domain.ErrIndexBusy
	_, err = run(t, "rebuild")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestStatusCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Index:        empty")
	assert.Contains(t, out, "Last updated: never")

	mocks.status.status = domain.Status{Status: domain.IndexCorrupted}
	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ragtube rebuild")
}

func TestStatusCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "status", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"status": "empty"`)
	assert.Contains(t, out, `"registry_count": 0`)
}

func TestSourcesCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "catcatcat01  success  All About Cats")
	assert.Contains(t, out, "3 chunks, en")
	assert.Contains(t, out, "rate limited")

	out, err = run(t, "sources", "remove", "https://youtu.be/catcatcat01")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed catcatcat01")
	assert.Equal(t, []string{"catcatcat01"}, mocks.source.removed)

	_, err = run(t, "sources", "remove", "missing0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err = run(t, "sources", "summary", "catcatcat01")
	require.NoError(t, err)
	assert.Contains(t, out, "A video about cats.")
}

func TestSettingsCmd_Show(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.settings.LLM.APIKey = "sk-1234567890abcdef"

	out, err := run(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunk size: 1000 (overlap 200)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "/tmp/ragtube/config.toml")
}

func TestSettingsCmd_Set(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "settings", "set", "rag.chunk_size", "800")
	require.NoError(t, err)
	assert.Contains(t, out, "rag.chunk_size = 800")
	assert.Equal(t, "800", mocks.settings.set["rag.chunk_size"])

	_, err = run(t, "settings", "set", "rag.chunk_overlap", "5000")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = run(t, "settings", "set", "rag.chunk_size")
	assert.Error(t, err)
}

func TestSettingsCmd_SetAPIKeyFromInput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("sk-abcdefghijklmnop\n"))
	out, err := run(t, "settings", "set", "llm.api_key")

	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefghijklmnop", mocks.settings.set["llm.api_key"])
	assert.Contains(t, out, "llm.api_key = sk-a...mnop")
}

func TestWatchCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := run(t, "watch")
	assert.Error(t, err, "no directory configured")

	mocks.settings.settings.Storage.WatchDir = "/data/subs"
	out, err := run(t, "watch")
	require.NoError(t, err)
	assert.Equal(t, "/data/subs", mocks.watch.dir)
	assert.Contains(t, out, "Watching /data/subs")

	_, err = run(t, "watch", "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", mocks.watch.dir)
}

func TestMCPServeCmd_RequiresServices(t *testing.T) {
	_, err := newMCPServer()
	assert.Error(t, err)

	cleanup := setupTestServices()
	defer cleanup()

	server, err := newMCPServer()
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestCommandsWithoutServices(t *testing.T) {
	for _, args := range [][]string{
		{"ask", "q"},
		{"search", "q"},
		{"similar", "q"},
		{"rebuild"},
		{"status"},
		{"sources"},
		{"settings"},
		{"ingest", "catcatcat01"},
	} {
		_, err := run(t, args...)
		assert.ErrorIs(t, err, errNotConfigured, strings.Join(args, " "))
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Short key", input: "abc123", expected: "****"},
		{name: "Exactly 8 chars", input: "12345678", expected: "****"},
		{name: "Long key", input: "sk-1234567890abcdef", expected: "sk-1...cdef"},
		{name: "Empty key", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}
