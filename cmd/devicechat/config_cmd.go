package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/devicechat/internal/config"
	"github.com/muurk/devicechat/internal/ui"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
	Long: `Inspect or create the devicechat configuration file.

The file is optional; every value has a default. The API key is never stored
in it. Set GEMINI_API_KEY (or API_KEY) in the environment or a .env file.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Example: `  # Create the default config file
  devicechat config init

  # Replace an existing file without the confirmation prompt
  devicechat config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.InOrStdin(), cmd.OutOrStdout(), configForce)
	},
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func showConfig(out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	_ = config.LoadDotEnv()
	key, _ := config.APIKey()

	_, _ = fmt.Fprintf(out, "# api key: %s\n", config.Redact(key))
	_, _ = out.Write(data)
	return nil
}

func initConfig(in io.Reader, out io.Writer, force bool) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, statErr)
	}

	printer := ui.NewPrinter(out)
	if exists && !force {
		ok := printer.Confirm(in, "Replace configuration", []string{
			path + " already exists",
			"Every setting in it will be reset to the default",
		}, "OVERWRITE")
		if !ok {
			return nil
		}
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}

	printer.PrintSuccess("Configuration written", ui.Param{Key: "Path", Value: path})
	return nil
}
