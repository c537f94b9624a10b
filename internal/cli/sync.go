package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dl-alexandre/mrisync/internal/api"
	"github.com/dl-alexandre/mrisync/internal/auth"
	"github.com/dl-alexandre/mrisync/internal/config"
	"github.com/dl-alexandre/mrisync/internal/dicom"
	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/metrics"
	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/resolver"
	syncengine "github.com/dl-alexandre/mrisync/internal/sync"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the wanted MRI series into a Drive folder",
	Long: `Walks --mri-path, keeps study and series folders matching the folder
patterns whose DICOM files have a wanted series description, and creates
the missing folders and files under --folder-id.

Existing files are only replaced with --update-files, and remote entries
that are not wanted locally are only removed with --remove-extraneous.`,
	Example: `  mrisync sync -m /data/mri -j ~/keys/sa.json -b 0AbCdEfGh
  mrisync sync -m /data/mri -u -r '^hlp17umm\d{5}_\d{5}$' -r '^s\d{5}$' -v`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// selectionFlags are shared by sync and tree
type selectionFlags struct {
	mriPath        string
	folderPatterns []string
	filePattern    string
	seriesPattern  string
}

func (s *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.mriPath, "mri-path", "m", "", "Directory containing the MRI study folders (required)")
	cmd.Flags().StringArrayVarP(&s.folderPatterns, "regex-subfolder", "r", nil, "Folder name regex; repeat to allow several")
	cmd.Flags().StringVar(&s.filePattern, "file-pattern", "", "File name regex")
	cmd.Flags().StringVar(&s.seriesPattern, "series-pattern", "", "SeriesDescription regex a series must match")
	_ = cmd.MarkFlagRequired("mri-path")
}

// apply overrides cfg with the flags set on cmd
func (s *selectionFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("regex-subfolder") {
		cfg.FolderPatterns = s.folderPatterns
	}
	if cmd.Flags().Changed("file-pattern") {
		cfg.FilePattern = s.filePattern
	}
	if cmd.Flags().Changed("series-pattern") {
		cfg.SeriesPattern = s.seriesPattern
	}
}

var (
	syncSelection        selectionFlags
	syncCredentials      string
	syncFolderID         string
	syncFolderPath       string
	syncImpersonate      string
	syncUpdateFiles      bool
	syncRemoveExtraneous bool
	syncPermanentDelete  bool
	syncDryRun           bool
	syncConcurrency      int
	syncMetricsFile      string
)

func init() {
	syncSelection.bind(syncCmd)
	syncCmd.Flags().StringVarP(&syncCredentials, "credentials", "j", "", "Service account key JSON")
	syncCmd.Flags().StringVarP(&syncFolderID, "folder-id", "b", "", "Destination Drive folder ID")
	syncCmd.Flags().StringVar(&syncFolderPath, "folder-path", "", "Destination folder path from My Drive, used when no ID is given")
	syncCmd.Flags().StringVar(&syncImpersonate, "impersonate", "", "Workspace user to act as (domain-wide delegation)")
	syncCmd.Flags().BoolVarP(&syncUpdateFiles, "update-files", "u", false, "Replace remote files older than the local copy")
	syncCmd.Flags().BoolVar(&syncRemoveExtraneous, "remove-extraneous", false, "Remove remote entries not wanted locally")
	syncCmd.Flags().BoolVar(&syncPermanentDelete, "permanent-delete", false, "Delete instead of moving to trash")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "List the changes without making them")
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 1, "Parallel uploads and deletes within one folder; 1 runs every remote operation sequentially")
	syncCmd.Flags().StringVar(&syncMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(syncCmd)
}

// applySyncFlags layers the sync flags over the loaded configuration
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) error {
	syncSelection.apply(cmd, cfg)
	flags := cmd.Flags()
	if flags.Changed("credentials") {
		cfg.CredentialsFile = syncCredentials
	}
	if flags.Changed("folder-id") {
		cfg.RootFolderID = syncFolderID
	}
	if flags.Changed("folder-path") {
		cfg.RootFolderPath = syncFolderPath
	}
	if flags.Changed("update-files") {
		cfg.UpdateFiles = syncUpdateFiles
	}
	if flags.Changed("remove-extraneous") {
		cfg.RemoveExtraneous = syncRemoveExtraneous
	}
	if flags.Changed("permanent-delete") {
		cfg.PermanentDelete = syncPermanentDelete
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = syncConcurrency
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = syncMetricsFile
	}

	if err := cfg.ExpandPaths(); err != nil {
		return utils.ConfigError("Failed to expand paths", err)
	}
	if err := cfg.Validate(); err != nil {
		return utils.ConfigError("Invalid configuration", err)
	}
	if cfg.CredentialsFile == "" {
		return utils.ConfigError("Service account key is required (--credentials or credentialsFile)", nil)
	}
	if cfg.RootFolderID == "" && cfg.RootFolderPath == "" {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"Destination folder is required (--folder-id or --folder-path)").Build())
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	cfg := appConfig
	if err := applySyncFlags(cmd, cfg); err != nil {
		return err
	}

	localRoot, err := resolveLocalRoot(syncSelection.mriPath)
	if err != nil {
		return err
	}

	traceID := uuid.New().String()
	log := GetLogger().WithTraceID(traceID)
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, traceID, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := cfg.GetRunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := auth.ServiceOptions{ImpersonateUser: syncImpersonate}
	if flags.Debug {
		opts.Transport = logging.NewDebugTransport(nil, log)
	}
	service, key, err := auth.NewDriveService(context.Background(), cfg.CredentialsFile, opts)
	if err != nil {
		return err
	}
	log.Info("Authenticated",
		logging.F("serviceAccount", key.ClientEmail),
		logging.F("project", key.ProjectID),
	)

	client := api.NewClient(service, cfg.MaxRetries, cfg.RetryBaseDelay, log)
	store := remote.NewDriveStore(client, remote.DriveStoreOptions{
		PermanentDelete: cfg.PermanentDelete,
		TraceID:         traceID,
	})

	if cfg.RootFolderID == "" {
		id, err := resolver.NewPathResolver(store).ResolveFolder(ctx, cfg.RootFolderPath, resolver.ResolveOptions{StrictMode: true})
		if err != nil {
			return err
		}
		log.Info("Resolved destination folder", logging.F("path", cfg.RootFolderPath), logging.F("id", id))
		cfg.RootFolderID = id
	}
	if err := checkRemoteRoot(ctx, store, cfg.RootFolderID); err != nil {
		return err
	}

	fs := afero.NewOsFs()
	datasets, err := pattern.Compile(cfg.FilePattern)
	if err != nil {
		return utils.ConfigError("Invalid file pattern", err)
	}
	tags := dicom.NewReaderWithPattern(fs, datasets, log)

	m := metrics.New()
	engine := syncengine.NewEngine(fs, store, tags, log).
		WithRecorder(m).
		WithOutput(cmd.OutOrStdout(), useColor(cfg)).
		WithConcurrency(cfg.Concurrency)

	verbose := flags.Verbose || flags.Debug
	asJSON := flags.OutputFormat == types.OutputFormatJSON
	if verbose && !asJSON {
		out.Log("Path to MRI folders: %s", localRoot)
		out.Log("Destination folder: %s", cfg.RootFolderID)
	}

	result, runErr := engine.Run(ctx, syncengine.Request{
		LocalRoot:    localRoot,
		RemoteRootID: cfg.RootFolderID,
		Config: syncengine.Config{
			FolderPatterns:   cfg.FolderPatterns,
			FilePattern:      cfg.FilePattern,
			ContentPattern:   cfg.SeriesPattern,
			UpdateFiles:      cfg.UpdateFiles,
			RemoveExtraneous: cfg.RemoveExtraneous,
			Verbose:          verbose && !asJSON,
			DryRun:           syncDryRun,
		},
	})

	m.RecordRun(result.Summary, result.DesiredFolders, result.DesiredFiles, result.Duration, runErr != nil)
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("Failed to write metrics file",
				logging.F("path", cfg.MetricsFile),
				logging.F("error", err.Error()),
			)
		}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeCancelled, "Sync interrupted").
				WithContext("cause", runErr.Error()).
				Build())
		}
		return runErr
	}

	report := newSyncReport(localRoot, cfg.RootFolderID, syncDryRun, result.Summary)
	report.DesiredFolders = result.DesiredFolders
	report.DesiredFiles = result.DesiredFiles
	report.DurationMs = result.Duration.Milliseconds()
	report.Planned = result.Planned

	if err := writeSyncReport(out, report, verbose, asJSON); err != nil {
		return err
	}

	if report.Failed > 0 {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeSyncPartialFailure,
			"Some remote operations failed").
			WithContext("failed", report.Failed).
			WithContext("traceId", traceID).
			Build())
	}
	return nil
}

func writeSyncReport(out *OutputWriter, report *SyncReport, verbose, asJSON bool) error {
	if asJSON {
		return out.WriteSuccess("sync", report)
	}
	if report.DryRun {
		if err := out.WriteSuccess("sync", plannedTable(report.Planned)); err != nil {
			return err
		}
	}
	if verbose {
		if err := out.WriteSuccess("sync", report); err != nil {
			return err
		}
	}
	out.Log("%s", completionMarker(report))
	return nil
}

// resolveLocalRoot makes path absolute and checks that it is a directory
func resolveLocalRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", invalidPath(path, err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", invalidPath(abs, err.Error())
	}
	if !info.IsDir() {
		return "", invalidPath(abs, "not a directory")
	}
	return abs, nil
}

func invalidPath(path, reason string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath, "Invalid MRI path").
		WithContext("path", path).
		WithContext("reason", reason).
		Build())
}

// checkRemoteRoot fails before any tree walk when the destination is not a
// reachable folder
func checkRemoteRoot(ctx context.Context, store remote.Store, id string) error {
	item, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !item.IsFolder() {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"Destination is not a folder").
			WithContext("id", id).
			WithContext("name", item.Name).
			Build())
	}
	return nil
}
