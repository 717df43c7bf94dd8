package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ragtube", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerUser)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptAnswerUser], prompt)

	for _, name := range []string{driven.PromptAnswerSystem, driven.PromptAnswerUser, driven.PromptSummarise} {
		_, err := os.Stat(filepath.Join(dir, name+".txt"))
		assert.NoError(t, err, "expected %s.txt", name)
	}
}

func TestPromptStore_Load_CustomContentAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, driven.PromptSummarise+".txt")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(path, []byte("  Sum up %[1]s: %[2]s\n"), 0600))

	prompt, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, "Sum up %[1]s: %[2]s", prompt)

	// Cached until Reload.
	require.NoError(t, os.WriteFile(path, []byte("Changed"), 0600))
	prompt, _ = store.Load(driven.PromptSummarise)
	assert.Equal(t, "Sum up %[1]s: %[2]s", prompt)

	store.Reload()
	prompt, _ = store.Load(driven.PromptSummarise)
	assert.Equal(t, "Changed", prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptAnswerSystem+".txt"), []byte("   "), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptAnswerSystem], prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.Error(t, err)
}

func TestDefaultPrompts_Placeholders(t *testing.T) {
	system := fmt.Sprintf(driven.DefaultPrompts()[driven.PromptAnswerSystem], "Neko", "kind", "soft", "nya")
	assert.Contains(t, system, `"Neko"`)
	assert.Contains(t, system, "nya")
	assert.NotContains(t, system, "%!")

	user := fmt.Sprintf(driven.DefaultPrompts()[driven.PromptAnswerUser], "why?", "[1] passage")
	assert.Contains(t, user, "Question: why?")
	assert.NotContains(t, user, "%!")
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptAnswerSystem)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}
