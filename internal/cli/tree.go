package cli

import (
	"context"

	"github.com/dl-alexandre/mrisync/internal/dicom"
	syncengine "github.com/dl-alexandre/mrisync/internal/sync"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the folders and files a sync would mirror",
	Long: `Builds and prunes the local tree exactly like sync does, without
contacting Drive, and prints the result.`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

var treeSelection selectionFlags

func init() {
	treeSelection.bind(treeCmd)
	rootCmd.AddCommand(treeCmd)
}

type treeSummary struct {
	Root    string `json:"root"`
	Folders int    `json:"folders"`
	Files   int    `json:"files"`
}

func runTree(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	cfg := appConfig
	treeSelection.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return utils.ConfigError("Invalid configuration", err)
	}

	localRoot, err := resolveLocalRoot(treeSelection.mriPath)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	datasets, err := pattern.Compile(cfg.FilePattern)
	if err != nil {
		return utils.ConfigError("Invalid file pattern", err)
	}
	log := GetLogger()
	engine := syncengine.NewEngine(fs, nil, dicom.NewReaderWithPattern(fs, datasets, log), log)

	root, err := engine.Plan(context.Background(), localRoot, syncengine.Config{
		FolderPatterns: cfg.FolderPatterns,
		FilePattern:    cfg.FilePattern,
		ContentPattern: cfg.SeriesPattern,
	})
	if err != nil {
		return err
	}

	folders, files := root.Count()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, "", cmd.OutOrStdout(), cmd.ErrOrStderr())
	if flags.OutputFormat == types.OutputFormatJSON {
		return out.WriteSuccess("tree", treeSummary{Root: localRoot, Folders: folders, Files: files})
	}
	if err := root.Print(cmd.OutOrStdout()); err != nil {
		return err
	}
	out.Log("%d folders, %d files", folders, files)
	return nil
}
