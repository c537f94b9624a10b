package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/sync/executor"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/tree"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
)

// Config selects what is mirrored and how. FolderPatterns may hold several
// expressions; a folder is kept when any of them matches.
type Config struct {
	FolderPatterns   []string
	FilePattern      string
	ContentPattern   string
	UpdateFiles      bool
	RemoveExtraneous bool
	Verbose          bool
	DryRun           bool
}

// DefaultConfig returns the selection used for GE MRI exports
func DefaultConfig() Config {
	return Config{
		FolderPatterns: []string{utils.DefaultFolderPattern},
		FilePattern:    utils.DefaultFilePattern,
		ContentPattern: utils.DefaultContentPattern,
	}
}

type Request struct {
	LocalRoot    string
	RemoteRootID string
	Config       Config
}

type Result struct {
	Summary executor.Summary
	// DesiredFolders and DesiredFiles count the pruned local tree, root excluded.
	DesiredFolders int
	DesiredFiles   int
	Duration       time.Duration
	// Planned lists the mutations a dry run would have made.
	Planned []remote.Mutation
}

// Engine runs build, prune and reconcile for one local root
type Engine struct {
	fs          afero.Fs
	store       remote.Store
	tags        tree.TagReader
	logger      logging.Logger
	recorder    executor.Recorder
	out         io.Writer
	color       bool
	concurrency int
}

func NewEngine(fs afero.Fs, store remote.Store, tags tree.TagReader, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		fs:     fs,
		store:  store,
		tags:   tags,
		logger: logger,
		out:    io.Discard,
	}
}

// WithRecorder reports every applied action to r
func (e *Engine) WithRecorder(r executor.Recorder) *Engine {
	e.recorder = r
	return e
}

// WithOutput sets where verbose action reports are written
func (e *Engine) WithOutput(w io.Writer, color bool) *Engine {
	e.out = w
	e.color = color
	return e
}

// WithConcurrency bounds parallel uploads and deletes within one folder
func (e *Engine) WithConcurrency(n int) *Engine {
	e.concurrency = n
	return e
}

// Plan builds and prunes the local tree without touching the remote side
func (e *Engine) Plan(ctx context.Context, localRoot string, cfg Config) (*tree.Node, error) {
	folders, err := pattern.Compile(cfg.FolderPatterns...)
	if err != nil {
		return nil, utils.ConfigError("Invalid folder pattern", err)
	}
	files, err := pattern.Compile(cfg.FilePattern)
	if err != nil {
		return nil, utils.ConfigError("Invalid file pattern", err)
	}
	content, err := pattern.Compile(cfg.ContentPattern)
	if err != nil {
		return nil, utils.ConfigError("Invalid series pattern", err)
	}

	root, err := tree.NewRoot(e.fs, localRoot)
	if err != nil {
		return nil, localEnumerationError(localRoot, err)
	}

	start := time.Now()
	if err := tree.NewBuilder(e.fs, folders, files, e.logger).Build(ctx, root); err != nil {
		return nil, localEnumerationError(localRoot, err)
	}
	builtFolders, builtFiles := root.Count()

	tree.NewPruner(e.tags, content, e.logger).Prune(root)
	keptFolders, keptFiles := root.Count()

	e.logger.Info("Local tree ready",
		logging.F("root", localRoot),
		logging.F("folders", keptFolders),
		logging.F("files", keptFiles),
		logging.F("prunedFolders", builtFolders-keptFolders),
		logging.F("prunedFiles", builtFiles-keptFiles),
		logging.F("duration_ms", time.Since(start).Milliseconds()),
	)
	return root, nil
}

// Run mirrors the pruned tree under req.LocalRoot into req.RemoteRootID.
// The returned error is set only when the run was aborted; individual
// failed operations are reported in Result.Summary.Failed.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	var result Result

	if req.RemoteRootID == "" {
		return result, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"Remote root folder ID is required").Build())
	}

	root, err := e.Plan(ctx, req.LocalRoot, req.Config)
	if err != nil {
		return result, err
	}
	result.DesiredFolders, result.DesiredFiles = root.Count()

	store := e.store
	var dryRun *remote.DryRunStore
	if req.Config.DryRun {
		dryRun = remote.NewDryRunStore(e.store)
		store = dryRun
	}

	exec := executor.New(store, e.logger, e.recorder, executor.Options{
		Verbose:     req.Config.Verbose,
		Color:       e.color,
		Out:         e.out,
		Concurrency: e.concurrency,
	})
	reconciler := NewReconciler(store, exec, Options{
		UpdateFiles:      req.Config.UpdateFiles,
		RemoveExtraneous: req.Config.RemoveExtraneous,
		Verbose:          req.Config.Verbose,
		DryRun:           req.Config.DryRun,
	}, e.logger)

	err = reconciler.Reconcile(ctx, root, req.RemoteRootID)

	result.Summary = exec.Summary()
	result.Duration = time.Since(start)
	if dryRun != nil {
		result.Planned = dryRun.Mutations()
	}

	if err != nil {
		e.logger.Error("Sync aborted",
			logging.F("root", req.LocalRoot),
			logging.F("error", err.Error()),
		)
		return result, err
	}

	e.logger.Info("Sync finished",
		logging.F("root", req.LocalRoot),
		logging.F("remoteRoot", req.RemoteRootID),
		logging.F("mutations", result.Summary.Total()),
		logging.F("failed", result.Summary.Failed),
		logging.F("dryRun", req.Config.DryRun),
		logging.F("duration_ms", result.Duration.Milliseconds()),
	)
	return result, nil
}

func localEnumerationError(root string, cause error) error {
	appErr := utils.NewAppError(utils.NewCLIError(utils.ErrCodeEnumerationFailed,
		"Failed to read local tree").
		WithContext("path", root).
		WithContext("cause", cause.Error()).
		Build())
	return fmt.Errorf("%w: %w", appErr, cause)
}
