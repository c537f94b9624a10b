package executor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/sync/diff"
)

// Recorder observes the outcome of every applied action
type Recorder interface {
	Observe(action diff.ActionType, ok bool)
}

type Options struct {
	// Verbose reports every successful mutation to Out.
	Verbose bool
	Color   bool
	Out     io.Writer
	// Concurrency bounds ApplyAll; values below 1 run actions one at a time.
	Concurrency int
}

type Summary struct {
	FoldersCreated int
	FilesUploaded  int
	FilesUpdated   int
	FoldersDeleted int
	FilesDeleted   int
	Failed         int
	Skipped        int
}

// Total counts successful mutations
func (s Summary) Total() int {
	return s.FoldersCreated + s.FilesUploaded + s.FilesUpdated + s.FoldersDeleted + s.FilesDeleted
}

// Executor applies single actions against a remote store. A failed action
// is logged and counted; it never stops the caller from applying the next.
type Executor struct {
	store    remote.Store
	logger   logging.Logger
	recorder Recorder
	opts     Options

	mu      sync.Mutex
	summary Summary
}

func New(store remote.Store, logger logging.Logger, recorder Recorder, opts Options) *Executor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Executor{
		store:    store,
		logger:   logger,
		recorder: recorder,
		opts:     opts,
	}
}

// Summary returns the counts accumulated so far
func (e *Executor) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Skip counts n files left alone because the remote copy is current
func (e *Executor) Skip(n int) {
	e.mu.Lock()
	e.summary.Skipped += n
	e.mu.Unlock()
}

// Apply performs one action and returns the created or updated item
func (e *Executor) Apply(ctx context.Context, action diff.Action) (remote.Item, error) {
	var (
		item remote.Item
		err  error
	)

	switch action.Type {
	case diff.ActionMkdirRemote:
		item, err = e.store.CreateFolder(ctx, action.ParentID, action.Name)
	case diff.ActionUpload:
		item, err = e.store.Upload(ctx, action.ParentID, action.Path)
	case diff.ActionUpdate:
		item, err = e.store.UpdateContents(ctx, action.RemoteID, action.Path)
	case diff.ActionDeleteRemoteFolder:
		err = e.store.Delete(ctx, action.RemoteID, true)
		item = remote.Item{ID: action.RemoteID, Name: action.Name, Kind: remote.KindFolder}
	case diff.ActionDeleteRemoteFile:
		err = e.store.Delete(ctx, action.RemoteID, false)
		item = remote.Item{ID: action.RemoteID, Name: action.Name, Kind: remote.KindFile}
	default:
		err = fmt.Errorf("unknown action type %q", action.Type)
	}

	if e.recorder != nil {
		e.recorder.Observe(action.Type, err == nil)
	}

	if err != nil {
		return remote.Item{}, e.Fail(action, err)
	}

	e.mu.Lock()
	e.summary = addSummary(e.summary, action.Type)
	e.mu.Unlock()

	e.report(action, item)
	return item, nil
}

// Fail logs and counts an action that could not be completed and returns
// err annotated with the action.
func (e *Executor) Fail(action diff.Action, err error) error {
	e.logger.Error("Remote operation failed",
		logging.F("action", string(action.Type)),
		logging.F("name", action.Name),
		logging.F("path", action.Path),
		logging.F("remoteId", action.RemoteID),
		logging.F("parentId", action.ParentID),
		logging.F("error", err.Error()),
	)
	e.mu.Lock()
	e.summary.Failed++
	e.mu.Unlock()
	return fmt.Errorf("%s %s: %w", action.Type, action.Name, err)
}

// Result pairs an action with its outcome
type Result struct {
	Action diff.Action
	Item   remote.Item
	Err    error
}

// ApplyAll applies independent actions with up to Options.Concurrency
// workers. Results are returned in the order of actions.
func (e *Executor) ApplyAll(ctx context.Context, actions []diff.Action) []Result {
	results := make([]Result, len(actions))
	runConcurrent(ctx, len(actions), e.opts.Concurrency, func(i int) {
		item, err := e.Apply(ctx, actions[i])
		results[i] = Result{Action: actions[i], Item: item, Err: err}
	})
	return results
}

func runConcurrent(ctx context.Context, n int, concurrency int, handler func(i int)) {
	if n == 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				handler(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func addSummary(summary Summary, actionType diff.ActionType) Summary {
	switch actionType {
	case diff.ActionMkdirRemote:
		summary.FoldersCreated++
	case diff.ActionUpload:
		summary.FilesUploaded++
	case diff.ActionUpdate:
		summary.FilesUpdated++
	case diff.ActionDeleteRemoteFolder:
		summary.FoldersDeleted++
	case diff.ActionDeleteRemoteFile:
		summary.FilesDeleted++
	}
	return summary
}

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[1;32m"
	colorOrange = "\033[1;33m"
	colorRed    = "\033[1;31m"
)

// report prints e.g. "    Creating subFolder 's00001' with ID 'abc'"
func (e *Executor) report(action diff.Action, item remote.Item) {
	if !e.opts.Verbose {
		return
	}

	var verb, color string
	switch action.Type {
	case diff.ActionMkdirRemote, diff.ActionUpload:
		verb, color = "Creating", colorGreen
	case diff.ActionUpdate:
		verb, color = "Updating", colorOrange
	default:
		verb, color = "Removed", colorRed
	}
	kind := "subFile"
	if item.IsFolder() {
		kind = "subFolder"
	}

	name := item.Name
	if name == "" {
		name = action.Name
	}

	line := fmt.Sprintf("%s %s", verb, kind)
	with := "with ID"
	if e.opts.Color {
		line = color + line + colorReset
		with = color + with + colorReset
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.opts.Out, "%s%s '%s' %s '%s'\n", strings.Repeat("  ", action.Depth), line, name, with, item.ID)
}
