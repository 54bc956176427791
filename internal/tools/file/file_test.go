package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hearth/internal/tools"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := New(t.TempDir())
	require.NoError(t, err)
	return h
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "notes/a.txt", "content": "hello"})
	require.NoError(t, err)

	out, err := h.Read(ctx, map[string]interface{}{"path": "notes/a.txt"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestWriteFailsIfExistsWithoutOverwrite(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "a.txt", "content": "first"})
	require.NoError(t, err)

	_, err = h.Write(ctx, map[string]interface{}{"path": "a.txt", "content": "second"})
	require.Error(t, err)

	out, _ := h.Read(ctx, map[string]interface{}{"path": "a.txt"})
	require.Equal(t, "first", out)
}

func TestWriteOverwriteTrueReplacesContent(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "a.txt", "content": "first"})
	require.NoError(t, err)

	_, err = h.Write(ctx, map[string]interface{}{"path": "a.txt", "content": "second", "overwrite": true})
	require.NoError(t, err)

	out, _ := h.Read(ctx, map[string]interface{}{"path": "a.txt"})
	require.Equal(t, "second", out)
}

func TestPathEscapeIsRejected(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Read(ctx, map[string]interface{}{"path": "../outside.txt"})
	require.Error(t, err)

	var sv *tools.SafetyViolationError
	require.ErrorAs(t, err, &sv)
}

func TestSensitivePathsAreRejectedOnReadAndWrite(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	sensitive := []string{".env", ".ssh/id_rsa", "db/credentials.json", "etc/passwd", "secrets/server.pem"}
	for _, p := range sensitive {
		_, err := h.Read(ctx, map[string]interface{}{"path": p})
		require.Errorf(t, err, "expected %s to be rejected on read", p)

		_, err = h.Write(ctx, map[string]interface{}{"path": p, "content": "x"})
		require.Errorf(t, err, "expected %s to be rejected on write", p)
	}
}

func TestListReturnsSortedEntries(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "b.txt", "content": "x"})
	require.NoError(t, err)
	_, err = h.Write(ctx, map[string]interface{}{"path": "a.txt", "content": "x"})
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(h.root, "sub"), 0o755))

	out, err := h.List(ctx, map[string]interface{}{"path": "."})
	require.NoError(t, err)
	require.Equal(t, "a.txt\nb.txt\nsub/", out)
}

func TestSearchFindsSubstringAcrossFiles(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "x.txt", "content": "needle in here"})
	require.NoError(t, err)
	_, err = h.Write(ctx, map[string]interface{}{"path": "y.txt", "content": "nothing relevant"})
	require.NoError(t, err)

	out, err := h.Search(ctx, map[string]interface{}{"path": ".", "pattern": "needle"})
	require.NoError(t, err)
	require.Contains(t, out, "x.txt")
	require.NotContains(t, out, "y.txt")
}

func TestMoveRenamesFile(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "old.txt", "content": "x"})
	require.NoError(t, err)

	_, err = h.Move(ctx, map[string]interface{}{"src": "old.txt", "dst": "new.txt"})
	require.NoError(t, err)

	_, err = h.Read(ctx, map[string]interface{}{"path": "old.txt"})
	require.Error(t, err)

	out, err := h.Read(ctx, map[string]interface{}{"path": "new.txt"})
	require.NoError(t, err)
	require.Equal(t, "x", out)
}

func TestDeleteNonRecursiveFailsOnNonEmptyDir(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Write(ctx, map[string]interface{}{"path": "dir/child.txt", "content": "x"})
	require.NoError(t, err)

	_, err = h.Delete(ctx, map[string]interface{}{"path": "dir"})
	require.Error(t, err)

	_, err = h.Delete(ctx, map[string]interface{}{"path": "dir", "recursive": true})
	require.NoError(t, err)

	_, err = h.List(ctx, map[string]interface{}{"path": "dir"})
	require.Error(t, err)
}

func TestDefinitionsRegisterAllOperations(t *testing.T) {
	h := newHandler(t)
	defs := h.Definitions()

	names := make(map[string]bool)
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{"file_read", "file_write", "file_list", "file_tree", "file_search", "file_info", "file_move", "file_delete"} {
		require.True(t, names[want], "expected %s to be registered", want)
	}
}
