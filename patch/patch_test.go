package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/hairizuanbinnoorazman/ohacker/llm"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientReturning(text string, requests *[]llm.Request) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		*requests = append(*requests, req)
		return &llm.Response{Text: text}, nil
	})
}

const vulnerable = `cursor.execute(f"DELETE FROM comments WHERE id = {comment_id}")`

func TestPatchFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(src, []byte(vulnerable), 0o644))

	var requests []llm.Request
	client := clientReturning(`{"description":"## Fix\nUse bound parameters.","python_code":"cursor.execute(\"DELETE FROM comments WHERE id = ?\", (comment_id,))"}`, &requests)
	runner := agent.NewRunner(client, logger.NewTestLogger(), 0)

	patch, err := PatchFile(context.Background(), runner, "", "comments table dropped via id param", src, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "## Fix\nUse bound parameters.", patch.Description)

	desc, err := os.ReadFile(filepath.Join(dir, DescriptionName))
	require.NoError(t, err)
	assert.Equal(t, patch.Description, string(desc))
	fixed, err := os.ReadFile(filepath.Join(dir, FixedCodeName))
	require.NoError(t, err)
	assert.Contains(t, string(fixed), "WHERE id = ?")

	require.Len(t, requests, 1)
	assert.Equal(t, DefaultModel, requests[0].Model)
	assert.Equal(t, "SecurityPatch", requests[0].OutputSchema.Name)
	assert.Equal(t, "Short summary of the findings: \n\ncomments table dropped via id param\nCode:\n"+vulnerable+"\n", requests[0].Messages[0].Content)
}

func TestPatch_EmptyFindingsAreValid(t *testing.T) {
	var requests []llm.Request
	client := clientReturning(`{"description":"d","python_code":"c"}`, &requests)
	store := newStore(t)

	p := NewPatcher(agent.NewRunner(client, logger.NewTestLogger(), 0), "", store, logger.NewTestLogger())
	_, err := p.Patch(context.Background(), "", "print(1)")
	require.NoError(t, err)
	assert.Equal(t, "Short summary of the findings: \n\n\nCode:\nprint(1)\n", requests[0].Messages[0].Content)
}

func TestPatch_InvalidOutputWritesNothing(t *testing.T) {
	var requests []llm.Request
	store := newStore(t)
	p := NewPatcher(agent.NewRunner(clientReturning("sorry, no patch", &requests), logger.NewTestLogger(), 0), "", store, logger.NewTestLogger())

	_, err := p.Patch(context.Background(), "x", "print(1)")
	assert.ErrorIs(t, err, agent.ErrInvalidOutput)

	exists, err := store.Exists(context.Background(), FixedCodeName)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPatch_EmptySource(t *testing.T) {
	p := NewPatcher(nil, "", nil, logger.NewTestLogger())
	_, err := p.Patch(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestPatchFile_MissingSource(t *testing.T) {
	_, err := PatchFile(context.Background(), nil, "", "", filepath.Join(t.TempDir(), "nope.py"), logger.NewTestLogger())
	assert.Error(t, err)
}

func newStore(t *testing.T) storage.ArtifactStore {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}
