package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/sync/executor"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/olekukonko/tablewriter"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format  types.OutputFormat
	quiet   bool
	traceID string
	out     io.Writer
	errOut  io.Writer
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(format types.OutputFormat, quiet bool, traceID string, out, errOut io.Writer) *OutputWriter {
	return &OutputWriter{
		format:  format,
		quiet:   quiet,
		traceID: traceID,
		out:     out,
		errOut:  errOut,
	}
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.out, types.CLIOutput{
			SchemaVersion: utils.SchemaVersion,
			TraceID:       w.traceID,
			Command:       command,
			Data:          data,
			Errors:        []types.CLIError{},
		})
	}
	if w.quiet {
		return nil
	}
	if renderable, ok := data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	return w.writeJSON(w.out, data)
}

// WriteError writes an error result to the error stream
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	if w.format == types.OutputFormatJSON {
		return w.writeJSON(w.errOut, types.CLIOutput{
			SchemaVersion: utils.SchemaVersion,
			TraceID:       w.traceID,
			Command:       command,
			Errors:        []types.CLIError{cliErr},
		})
	}
	fmt.Fprintf(w.errOut, "Error: %s: %s\n", cliErr.Code, cliErr.Message)
	keys := make([]string, 0, len(cliErr.Context))
	for k := range cliErr.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w.errOut, "  %s: %v\n", k, cliErr.Context[k])
	}
	return nil
}

// Log writes a plain line unless quiet or writing JSON
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if w.quiet || w.format == types.OutputFormatJSON {
		return
	}
	fmt.Fprintf(w.out, format+"\n", args...)
}

func (w *OutputWriter) writeJSON(dst io.Writer, v interface{}) error {
	encoder := json.NewEncoder(dst)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(w.out, renderer.EmptyMessage())
		return nil
	}

	table := tablewriter.NewWriter(w.out)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()
	return nil
}

// SyncReport is the result of one sync command
type SyncReport struct {
	LocalRoot      string            `json:"localRoot"`
	RemoteRootID   string            `json:"remoteRootId"`
	DryRun         bool              `json:"dryRun"`
	DesiredFolders int               `json:"desiredFolders"`
	DesiredFiles   int               `json:"desiredFiles"`
	FoldersCreated int               `json:"foldersCreated"`
	FilesUploaded  int               `json:"filesUploaded"`
	FilesUpdated   int               `json:"filesUpdated"`
	FoldersDeleted int               `json:"foldersDeleted"`
	FilesDeleted   int               `json:"filesDeleted"`
	Skipped        int               `json:"skipped"`
	Failed         int               `json:"failed"`
	DurationMs     int64             `json:"durationMs"`
	Planned        []remote.Mutation `json:"planned,omitempty"`
}

func newSyncReport(localRoot, remoteRootID string, dryRun bool, summary executor.Summary) *SyncReport {
	return &SyncReport{
		LocalRoot:      localRoot,
		RemoteRootID:   remoteRootID,
		DryRun:         dryRun,
		FoldersCreated: summary.FoldersCreated,
		FilesUploaded:  summary.FilesUploaded,
		FilesUpdated:   summary.FilesUpdated,
		FoldersDeleted: summary.FoldersDeleted,
		FilesDeleted:   summary.FilesDeleted,
		Skipped:        summary.Skipped,
		Failed:         summary.Failed,
	}
}

func (r *SyncReport) AsTableRenderer() types.TableRenderer {
	return syncReportTable{r}
}

type syncReportTable struct {
	r *SyncReport
}

func (t syncReportTable) Headers() []string {
	return []string{"Action", "Count"}
}

func (t syncReportTable) Rows() [][]string {
	r := t.r
	return [][]string{
		{"Folders wanted", strconv.Itoa(r.DesiredFolders)},
		{"Files wanted", strconv.Itoa(r.DesiredFiles)},
		{"Folders created", strconv.Itoa(r.FoldersCreated)},
		{"Files uploaded", strconv.Itoa(r.FilesUploaded)},
		{"Files updated", strconv.Itoa(r.FilesUpdated)},
		{"Files unchanged", strconv.Itoa(r.Skipped)},
		{"Folders removed", strconv.Itoa(r.FoldersDeleted)},
		{"Files removed", strconv.Itoa(r.FilesDeleted)},
		{"Failed", strconv.Itoa(r.Failed)},
	}
}

func (t syncReportTable) EmptyMessage() string {
	return "Nothing to report"
}

// plannedTable lists the mutations of a dry run
type plannedTable []remote.Mutation

func (p plannedTable) Headers() []string {
	return []string{"Op", "Name", "Parent", "Local path"}
}

func (p plannedTable) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, m := range p {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		rows = append(rows, []string{m.Op, name, m.ParentID, truncate(m.LocalPath, 60)})
	}
	return rows
}

func (p plannedTable) EmptyMessage() string {
	return "Remote tree is already up to date"
}

// completionMarker is the single line printed when a run finishes
func completionMarker(r *SyncReport) string {
	verb := "Sync complete"
	if r.DryRun {
		verb = "Dry run complete"
	}
	changes := r.FoldersCreated + r.FilesUploaded + r.FilesUpdated + r.FoldersDeleted + r.FilesDeleted
	return fmt.Sprintf("%s: %d changes, %d failed", verb, changes, r.Failed)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-(max-3):]
}
