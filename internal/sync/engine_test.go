package sync

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/testing/mocks"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileTime = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

type tagMap map[string]string

func (m tagMap) SeriesDescription(path string) string {
	return m[path]
}

// localTree writes each path with its series description; an empty
// description marks a non-matching dataset.
func localTree(t *testing.T, files map[string]string) (afero.Fs, tagMap) {
	t.Helper()
	fs := afero.NewMemMapFs()
	tags := tagMap{}
	require.NoError(t, fs.MkdirAll("/mri", 0o755))
	for path, desc := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(path), 0o644))
		require.NoError(t, fs.Chtimes(path, fileTime, fileTime))
		tags[path] = desc
	}
	return fs, tags
}

func openConfig() Config {
	return Config{
		FolderPatterns: []string{".*"},
		FilePattern:    ".*",
		ContentPattern: utils.DefaultContentPattern,
	}
}

func run(t *testing.T, fs afero.Fs, tags tagMap, store remote.Store, cfg Config) Result {
	t.Helper()
	result, err := NewEngine(fs, store, tags, nil).Run(context.Background(), Request{
		LocalRoot:    "/mri",
		RemoteRootID: "root",
		Config:       cfg,
	})
	require.NoError(t, err)
	return result
}

func names(items []remote.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	sort.Strings(out)
	return out
}

func TestRun_FreshSync(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat":   "t1sag",
		"/mri/A/B/y.dat": "t2flairsag",
	})
	store := mocks.NewStore()

	result := run(t, fs, tags, store, openConfig())

	assert.Equal(t, 2, result.Summary.FoldersCreated)
	assert.Equal(t, 2, result.Summary.FilesUploaded)
	assert.Zero(t, result.Summary.FoldersDeleted+result.Summary.FilesDeleted)
	assert.Zero(t, result.Summary.Failed)
	assert.Equal(t, 2, result.DesiredFolders)
	assert.Equal(t, 2, result.DesiredFiles)

	a, ok := store.Find("root", "A")
	require.True(t, ok)
	assert.Equal(t, []string{"B", "x.dat"}, names(store.Children(a.ID)))
	b, ok := store.Find(a.ID, "B")
	require.True(t, ok)
	assert.Equal(t, []string{"y.dat"}, names(store.Children(b.ID)))
	assert.Empty(t, store.CallsTo("Delete"))

	// Folders created in this run are known to be empty and are not listed.
	assert.Len(t, store.CallsTo("ListChildren"), 1)
}

func TestRun_Idempotent(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat":   "t1sag",
		"/mri/A/B/y.dat": "t1sag",
		"/mri/C/z.dat":   "t2flairsag",
	})
	store := mocks.NewStore()
	cfg := openConfig()
	cfg.UpdateFiles = true
	cfg.RemoveExtraneous = true

	first := run(t, fs, tags, store, cfg)
	require.Equal(t, 6, first.Summary.Total())

	store.ResetCalls()
	second := run(t, fs, tags, store, cfg)

	assert.Zero(t, second.Summary.Total())
	assert.Empty(t, store.Mutations())
	assert.Equal(t, 3, second.Summary.Skipped)
}

func TestRun_PrunedBranch(t *testing.T) {
	local := map[string]string{
		"/mri/A/B/y.dat": "t1sag",
		"/mri/A/C/z.dat": "localizer",
	}

	t.Run("stale remote branch left alone", func(t *testing.T) {
		fs, tags := localTree(t, local)
		store := mocks.NewStore()
		a := store.AddFolder("root", "A")
		c := store.AddFolder(a.ID, "C")

		result := run(t, fs, tags, store, openConfig())

		assert.Equal(t, 1, result.Summary.FoldersCreated)
		assert.Equal(t, 1, result.Summary.FilesUploaded)
		_, ok := store.Find(a.ID, "C")
		assert.True(t, ok)
		for _, call := range store.Calls() {
			assert.NotEqual(t, c.ID, call.ID, "C must not be touched")
			assert.NotEqual(t, c.ID, call.ParentID, "C must not be touched")
		}
	})

	t.Run("stale remote branch removed", func(t *testing.T) {
		fs, tags := localTree(t, local)
		store := mocks.NewStore()
		a := store.AddFolder("root", "A")
		c := store.AddFolder(a.ID, "C")
		store.AddFile(c.ID, "z.dat", fileTime)

		cfg := openConfig()
		cfg.RemoveExtraneous = true
		result := run(t, fs, tags, store, cfg)

		assert.Equal(t, 1, result.Summary.FoldersDeleted)
		_, ok := store.Find(a.ID, "C")
		assert.False(t, ok)
		assert.Equal(t, []string{"B"}, names(store.Children(a.ID)))
	})
}

func TestRun_Deletion(t *testing.T) {
	local := map[string]string{"/mri/A/x.dat": "t1sag"}

	for _, remove := range []bool{false, true} {
		fs, tags := localTree(t, local)
		store := mocks.NewStore()
		old := store.AddFolder("root", "Old")
		store.AddFile(old.ID, "inner.dat", fileTime)
		store.AddFile("root", "stray.dat", fileTime)

		cfg := openConfig()
		cfg.RemoveExtraneous = remove
		result := run(t, fs, tags, store, cfg)

		_, oldKept := store.Find("root", "Old")
		_, strayKept := store.Find("root", "stray.dat")
		if remove {
			assert.False(t, oldKept)
			assert.False(t, strayKept)
			assert.Equal(t, 1, result.Summary.FoldersDeleted)
			assert.Equal(t, 1, result.Summary.FilesDeleted)
			deletes := store.CallsTo("Delete")
			require.Len(t, deletes, 2)
			assert.Equal(t, old.ID, deletes[0].ID)
			assert.True(t, deletes[0].Recursive)
		} else {
			assert.True(t, oldKept)
			assert.True(t, strayKept)
			assert.Empty(t, store.CallsTo("Delete"))
		}
	}
}

func TestRun_UpdateThreshold(t *testing.T) {
	tests := []struct {
		name        string
		remoteTime  time.Time
		updateFiles bool
		wantUpdate  bool
	}{
		{"equal timestamps are skipped", fileTime, true, false},
		{"remote newer is skipped", fileTime.Add(time.Minute), true, false},
		{"local newer is updated", fileTime.Add(-time.Second), true, true},
		{"updates disabled", fileTime.Add(-time.Hour), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, tags := localTree(t, map[string]string{"/mri/A/x.dat": "t1sag"})
			store := mocks.NewStore()
			a := store.AddFolder("root", "A")
			x := store.AddFile(a.ID, "x.dat", tt.remoteTime)

			cfg := openConfig()
			cfg.UpdateFiles = tt.updateFiles
			result := run(t, fs, tags, store, cfg)

			updates := store.CallsTo("UpdateContents")
			assert.Empty(t, store.CallsTo("Upload"))
			if tt.wantUpdate {
				require.Len(t, updates, 1)
				assert.Equal(t, x.ID, updates[0].ID)
				assert.Equal(t, "/mri/A/x.dat", updates[0].LocalPath)
				assert.Equal(t, 1, result.Summary.FilesUpdated)
			} else {
				assert.Empty(t, updates)
			}
		})
	}
}

func TestRun_UnparseableRemoteTimeIsPerItemFailure(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat": "t1sag",
		"/mri/A/y.dat": "t1sag",
	})
	store := mocks.NewStore()
	a := store.AddFolder("root", "A")
	store.AddFile(a.ID, "y.dat", fileTime.Add(-time.Hour))
	store.ListChildrenFunc = func(folderID string) ([]remote.Item, error) {
		items := store.Children(folderID)
		for i := range items {
			if items[i].Name == "y.dat" {
				items[i].ModifiedTime = "not-a-time"
			}
		}
		return items, nil
	}

	cfg := openConfig()
	cfg.UpdateFiles = true
	result := run(t, fs, tags, store, cfg)

	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, 1, result.Summary.FilesUploaded, "x.dat is still uploaded")
	assert.Empty(t, store.CallsTo("UpdateContents"))
}

func TestRun_DryRun(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat":   "t1sag",
		"/mri/A/B/y.dat": "t1sag",
	})
	store := mocks.NewStore()
	store.AddFolder("root", "Old")

	cfg := openConfig()
	cfg.DryRun = true
	cfg.RemoveExtraneous = true
	result := run(t, fs, tags, store, cfg)

	assert.Empty(t, store.Mutations())
	assert.Equal(t, 2, result.Summary.FoldersCreated)
	assert.Equal(t, 2, result.Summary.FilesUploaded)
	assert.Equal(t, 1, result.Summary.FoldersDeleted)
	assert.Len(t, result.Planned, 5)
}

func TestRun_FailedUploadDoesNotStopSiblings(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/a.dat": "t1sag",
		"/mri/A/b.dat": "t1sag",
		"/mri/A/c.dat": "t1sag",
	})
	store := mocks.NewStore()
	store.UploadFunc = func(parentID, localPath string) (remote.Item, error) {
		if filepath.Base(localPath) == "b.dat" {
			return remote.Item{}, errors.New("upload rejected")
		}
		return store.AddFile(parentID, filepath.Base(localPath), time.Now()), nil
	}

	result := run(t, fs, tags, store, openConfig())

	assert.Equal(t, 2, result.Summary.FilesUploaded)
	assert.Equal(t, 1, result.Summary.Failed)
	a, _ := store.Find("root", "A")
	assert.Equal(t, []string{"a.dat", "c.dat"}, names(store.Children(a.ID)))
}

func TestRun_FailedFolderCreationIsNotDescended(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat": "t1sag",
		"/mri/D/z.dat": "t1sag",
	})
	store := mocks.NewStore()
	store.CreateFolderFunc = func(parentID, name string) (remote.Item, error) {
		if name == "A" {
			return remote.Item{}, errors.New("forbidden")
		}
		return store.AddFolder(parentID, name), nil
	}

	result := run(t, fs, tags, store, openConfig())

	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, 1, result.Summary.FoldersCreated)
	uploads := store.CallsTo("Upload")
	require.Len(t, uploads, 1)
	assert.Equal(t, "z.dat", uploads[0].Name)
}

func TestRun_EnumerationFailureAborts(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/A/x.dat": "t1sag",
		"/mri/B/y.dat": "t1sag",
	})
	store := mocks.NewStore()
	a := store.AddFolder("root", "A")
	store.AddFolder("root", "B")
	store.ListChildrenFunc = func(folderID string) ([]remote.Item, error) {
		if folderID == a.ID {
			return nil, errors.New("listing timed out")
		}
		return store.Children(folderID), nil
	}

	_, err := NewEngine(fs, store, tags, nil).Run(context.Background(), Request{
		LocalRoot:    "/mri",
		RemoteRootID: "root",
		Config:       openConfig(),
	})

	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, utils.ErrCodeEnumerationFailed, appErr.CLIError.Code)
	assert.Empty(t, store.CallsTo("Upload"), "nothing after the failed listing runs")
}

func TestRun_LocalRootErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	engine := NewEngine(fs, mocks.NewStore(), tagMap{}, nil)

	_, err := engine.Run(context.Background(), Request{LocalRoot: "/missing", RemoteRootID: "root", Config: openConfig()})
	assert.Equal(t, utils.ExitEnumerationFailed, utils.ExitCodeFor(err))

	require.NoError(t, fs.MkdirAll("/mri", 0o755))
	cfg := openConfig()
	cfg.ContentPattern = "(["
	_, err = engine.Run(context.Background(), Request{LocalRoot: "/mri", RemoteRootID: "root", Config: cfg})
	assert.Equal(t, utils.ExitConfigInvalid, utils.ExitCodeFor(err))

	_, err = engine.Run(context.Background(), Request{LocalRoot: "/mri", Config: openConfig()})
	assert.Equal(t, utils.ExitInvalidArgument, utils.ExitCodeFor(err))
}

func TestRun_VerboseOutput(t *testing.T) {
	fs, tags := localTree(t, map[string]string{"/mri/A/x.dat": "t1sag"})
	store := mocks.NewStore()

	var out bytes.Buffer
	cfg := openConfig()
	cfg.Verbose = true
	_, err := NewEngine(fs, store, tags, nil).WithOutput(&out, false).Run(context.Background(), Request{
		LocalRoot:    "/mri",
		RemoteRootID: "root",
		Config:       cfg,
	})
	require.NoError(t, err)

	a, _ := store.Find("root", "A")
	x, _ := store.Find(a.ID, "x.dat")
	assert.Equal(t,
		"  Creating subFolder 'A' with ID '"+a.ID+"'\n"+
			"    Creating subFile 'x.dat' with ID '"+x.ID+"'\n",
		out.String())
}

func TestPlan_DefaultPatterns(t *testing.T) {
	fs, tags := localTree(t, map[string]string{
		"/mri/hlp17umm00700_06072/s00001/i1.MRDC.1": "t1sag_fse",
		"/mri/hlp17umm00700_06072/s00002/i2.MRDC.2": "ax_t2",
		"/mri/hlp17umm00700_06072/s00002/i3.MRDC.3": "",
		"/mri/unrelated/i4.MRDC.4":                  "t1sag",
	})

	root, err := NewEngine(fs, mocks.NewStore(), tags, nil).Plan(context.Background(), "/mri", DefaultConfig())
	require.NoError(t, err)

	require.Len(t, root.Folders, 1)
	study := root.Folders[0]
	assert.Equal(t, "hlp17umm00700_06072", study.Name)
	assert.Equal(t, []string{"s00001"}, study.FolderNames())
}
