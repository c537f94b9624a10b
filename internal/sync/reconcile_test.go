package sync

import (
	"context"
	"testing"

	"github.com/dl-alexandre/mrisync/internal/sync/executor"
	"github.com/dl-alexandre/mrisync/internal/testing/mocks"
	"github.com/dl-alexandre/mrisync/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plannedTree(t *testing.T, files map[string]string) *tree.Node {
	t.Helper()
	fs, tags := localTree(t, files)
	root, err := NewEngine(fs, mocks.NewStore(), tags, nil).Plan(context.Background(), "/mri", openConfig())
	require.NoError(t, err)
	return root
}

func TestReconcile_NodeVisitedOnce(t *testing.T) {
	root := plannedTree(t, map[string]string{"/mri/A/x.dat": "t1sag"})
	store := mocks.NewStore()
	exec := executor.New(store, nil, nil, executor.Options{})
	r := NewReconciler(store, exec, Options{}, nil)

	require.NoError(t, r.Reconcile(context.Background(), root, "root"))
	require.NoError(t, r.Reconcile(context.Background(), root, "root"))

	assert.Len(t, store.CallsTo("CreateFolder"), 1)
	assert.Len(t, store.CallsTo("Upload"), 1)
	assert.Len(t, store.CallsTo("ListChildren"), 1)
}

func TestReconcile_Cancelled(t *testing.T) {
	root := plannedTree(t, map[string]string{"/mri/A/x.dat": "t1sag"})
	store := mocks.NewStore()
	r := NewReconciler(store, executor.New(store, nil, nil, executor.Options{}), Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Reconcile(ctx, root, "root"), context.Canceled)
	assert.Empty(t, store.Calls())
}

func TestReconcile_DuplicateRemoteNames(t *testing.T) {
	root := plannedTree(t, map[string]string{"/mri/A/x.dat": "t1sag"})
	store := mocks.NewStore()
	first := store.AddFolder("root", "A")
	store.AddFolder("root", "A")
	store.AddFolder("root", "Z")
	store.AddFolder("root", "Z")

	exec := executor.New(store, nil, nil, executor.Options{})
	r := NewReconciler(store, exec, Options{RemoveExtraneous: true}, nil)
	require.NoError(t, r.Reconcile(context.Background(), root, "root"))

	// The first A is used, the duplicate A is kept, both Z are removed.
	uploads := store.CallsTo("Upload")
	require.Len(t, uploads, 1)
	assert.Equal(t, first.ID, uploads[0].ParentID)
	assert.Len(t, store.CallsTo("Delete"), 2)
	assert.Equal(t, 2, exec.Summary().FoldersDeleted)
}
