package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dl-alexandre/mrisync/internal/config"
	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/dl-alexandre/mrisync/pkg/version"
	"github.com/spf13/cobra"
)

var (
	globalFlags types.GlobalFlags
	logger      logging.Logger = logging.NewNoOpLogger()
	appConfig   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mrisync",
	Short: "Mirror MRI DICOM exports into Google Drive",
	Long: `mrisync walks a local directory of MRI study exports, keeps the
study and series folders whose DICOM files carry a wanted series
description, and mirrors that tree into a Google Drive folder.

Runs are idempotent and meant to be scheduled.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		cfg, err := config.Load(globalFlags.Config)
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = newLogger(cfg)
		if err != nil {
			return utils.ConfigError("Failed to initialize logger", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// Skips config loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Append JSON log lines to this file")
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Report every remote change")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug logging, including HTTP traffic")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
}

func validateGlobalFlags() error {
	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("Invalid output format: %s", globalFlags.OutputFormat)).Build())
	}
	if globalFlags.Quiet && (globalFlags.Verbose || globalFlags.Debug) {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"--quiet cannot be combined with --verbose or --debug").Build())
	}
	return nil
}

// newLogger sends the configured level to the log file and a narrower
// level to the console. Without -v the console shows warnings and errors
// only.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	consoleLevel := logging.WARN
	switch {
	case globalFlags.Debug:
		level, consoleLevel = logging.DEBUG, logging.DEBUG
	case globalFlags.Verbose:
		consoleLevel = logging.INFO
	case globalFlags.Quiet || cfg.LogLevel == "quiet":
		consoleLevel = logging.ERROR
	}

	logFile := globalFlags.LogFile
	if logFile == "" {
		logFile = cfg.LogFile
	}

	var loggers []logging.Logger
	if logFile != "" {
		defaults := logging.DefaultLogConfig()
		fileLogger, err := logging.NewLogger(logging.LogConfig{
			Level:           level,
			OutputFile:      logFile,
			RedactSensitive: true,
			MaxFileSize:     defaults.MaxFileSize,
			MaxBackups:      defaults.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	console, err := logging.NewLogger(logging.LogConfig{
		Level:           consoleLevel,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     useColor(cfg),
		EnableTimestamp: true,
	})
	if err != nil {
		return nil, err
	}
	loggers = append(loggers, console)

	if len(loggers) == 1 {
		return loggers[0], nil
	}
	return logging.NewMultiLogger(loggers...), nil
}

func useColor(cfg *config.Config) bool {
	return cfg.ColorOutput && !globalFlags.NoColor && globalFlags.OutputFormat != types.OutputFormatJSON
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		out := NewOutputWriter(globalFlags.OutputFormat, false, "", os.Stdout, os.Stderr)
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			_ = out.WriteError(rootCmd.Name(), appErr.CLIError)
			return utils.ExitCodeFor(err)
		}
		_ = out.WriteError(rootCmd.Name(), utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build())
		return utils.ExitUnknown
	}
	return utils.ExitSuccess
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}
