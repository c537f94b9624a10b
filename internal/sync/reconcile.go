package sync

import (
	"context"
	"time"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/sync/diff"
	"github.com/dl-alexandre/mrisync/internal/sync/executor"
	"github.com/dl-alexandre/mrisync/internal/sync/scanner"
	"github.com/dl-alexandre/mrisync/internal/tree"
)

type Options struct {
	UpdateFiles      bool
	RemoveExtraneous bool
	Verbose          bool
	DryRun           bool
}

// Reconciler mirrors a pruned local tree into a remote folder. Entries are
// matched by name within each folder; there is no persisted ID mapping, so
// a rename on either side shows up as a delete plus a create.
type Reconciler struct {
	store   remote.Store
	exec    *executor.Executor
	opts    Options
	logger  logging.Logger
	loc     *time.Location
	visited map[*tree.Node]bool
}

func NewReconciler(store remote.Store, exec *executor.Executor, opts Options, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reconciler{
		store:   store,
		exec:    exec,
		opts:    opts,
		logger:  logger,
		loc:     remoteLocation(),
		visited: make(map[*tree.Node]bool),
	}
}

// Reconcile brings the remote folder in line with node and everything below
// it. Only enumeration failures and cancellation are returned; failed
// creates, uploads, updates and deletes are counted by the executor and the
// walk continues.
func (r *Reconciler) Reconcile(ctx context.Context, node *tree.Node, remoteFolderID string) error {
	return r.reconcile(ctx, node, remoteFolderID, false)
}

// fresh marks a folder created during this run; it is known to be empty so
// it is not listed.
func (r *Reconciler) reconcile(ctx context.Context, node *tree.Node, remoteFolderID string, fresh bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.visited[node] {
		return nil
	}
	r.visited[node] = true

	var level *scanner.Level
	if fresh {
		level = &scanner.Level{
			FolderID: remoteFolderID,
			Folders:  map[string]remote.Item{},
			Files:    map[string]remote.Item{},
		}
	} else {
		var err error
		level, err = scanner.ScanLevel(ctx, r.store, remoteFolderID)
		if err != nil {
			return err
		}
	}

	r.logger.Debug("Reconciling folder",
		logging.F("path", node.Path),
		logging.F("remoteId", remoteFolderID),
		logging.F("remoteFolders", len(level.FolderItems)),
		logging.F("remoteFiles", len(level.FileItems)),
	)

	folders := diff.Names(node.FolderNames(), level.FolderNames)
	files := diff.Names(node.FileNames(), level.FileNames)

	if r.opts.RemoveExtraneous {
		r.removeExtraneous(ctx, node, level, folders.Remove, files.Remove)
	}

	if err := r.syncFolders(ctx, node, level, folders); err != nil {
		return err
	}

	r.uploadFiles(ctx, node, remoteFolderID, files.Create)

	if r.opts.UpdateFiles {
		r.updateFiles(ctx, node, level, files.Keep)
	}
	return nil
}

func (r *Reconciler) removeExtraneous(ctx context.Context, node *tree.Node, level *scanner.Level, folderNames, fileNames []string) {
	staleFolders := toSet(folderNames)
	staleFiles := toSet(fileNames)

	var actions []diff.Action
	for _, item := range level.FolderItems {
		if _, ok := staleFolders[item.Name]; ok {
			actions = append(actions, diff.Action{
				Type:     diff.ActionDeleteRemoteFolder,
				Name:     item.Name,
				RemoteID: item.ID,
				ParentID: level.FolderID,
				Depth:    node.Depth + 1,
			})
		}
	}
	for _, item := range level.FileItems {
		if _, ok := staleFiles[item.Name]; ok {
			actions = append(actions, diff.Action{
				Type:     diff.ActionDeleteRemoteFile,
				Name:     item.Name,
				RemoteID: item.ID,
				ParentID: level.FolderID,
				Depth:    node.Depth + 1,
			})
		}
	}
	r.exec.ApplyAll(ctx, actions)
}

// syncFolders creates missing folders, descending into each right after it
// is created, then descends into the folders that already exist.
func (r *Reconciler) syncFolders(ctx context.Context, node *tree.Node, level *scanner.Level, names diff.Result) error {
	create := toSet(names.Create)

	for _, child := range node.Folders {
		if _, ok := create[child.Name]; !ok {
			continue
		}
		item, err := r.exec.Apply(ctx, diff.Action{
			Type:     diff.ActionMkdirRemote,
			Name:     child.Name,
			Path:     child.Path,
			ParentID: level.FolderID,
			Depth:    child.Depth,
		})
		if err != nil {
			continue
		}
		if err := r.reconcile(ctx, child, item.ID, true); err != nil {
			return err
		}
	}

	for _, child := range node.Folders {
		existing, ok := level.Folders[child.Name]
		if !ok {
			continue
		}
		if err := r.reconcile(ctx, child, existing.ID, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) uploadFiles(ctx context.Context, node *tree.Node, folderID string, names []string) {
	create := toSet(names)

	var actions []diff.Action
	for _, file := range node.Files {
		if _, ok := create[file.Name]; !ok {
			continue
		}
		actions = append(actions, diff.Action{
			Type:     diff.ActionUpload,
			Name:     file.Name,
			Path:     file.Path,
			ParentID: folderID,
			Depth:    file.Depth,
		})
	}
	r.exec.ApplyAll(ctx, actions)
}

// updateFiles re-uploads files whose local copy is strictly newer than the
// remote one.
func (r *Reconciler) updateFiles(ctx context.Context, node *tree.Node, level *scanner.Level, names []string) {
	keep := toSet(names)

	var actions []diff.Action
	current := 0
	for _, file := range node.Files {
		if _, ok := keep[file.Name]; !ok {
			continue
		}
		existing := level.Files[file.Name]
		action := diff.Action{
			Type:     diff.ActionUpdate,
			Name:     file.Name,
			Path:     file.Path,
			RemoteID: existing.ID,
			ParentID: level.FolderID,
			Depth:    file.Depth,
		}

		modTime, err := file.ModTime()
		if err != nil {
			_ = r.exec.Fail(action, err)
			continue
		}
		newer, err := localIsNewer(modTime, existing.ModifiedTime, r.loc)
		if err != nil {
			_ = r.exec.Fail(action, err)
			continue
		}
		if !newer {
			current++
			continue
		}
		actions = append(actions, action)
	}

	r.exec.Skip(current)
	r.exec.ApplyAll(ctx, actions)
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
