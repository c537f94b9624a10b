package cli

import (
	"os"

	"github.com/dl-alexandre/mrisync/internal/config"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing the mrisync configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Display the configuration after the file and MRISYNC_* environment variables are applied",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  "Write the default configuration to --config, or to the default location",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

type configShowResult struct {
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, "", cmd.OutOrStdout(), cmd.ErrOrStderr())

	path, err := configPath()
	if err != nil {
		return err
	}
	return out.WriteSuccess("config.show", configShowResult{Path: path, Config: appConfig})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, "", cmd.OutOrStdout(), cmd.ErrOrStderr())

	path, err := configPath()
	if err != nil {
		return err
	}
	if !configInitForce && fileExists(path) {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"Configuration file already exists; use --force to overwrite").
			WithContext("path", path).
			Build())
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return utils.ConfigError("Failed to write configuration", err)
	}
	out.Log("Configuration written to %s", path)
	return nil
}

func configPath() (string, error) {
	if globalFlags.Config != "" {
		return globalFlags.Config, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", utils.ConfigError("Cannot locate config file", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
