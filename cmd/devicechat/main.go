// Devicechat is a device chat room wizard.
//
// It walks the user through a simulated Bluetooth scan, connecting devices,
// a short setup phase, and finally a chat room where the connected devices
// answer together through the Gemini API.
//
// Usage:
//
//	devicechat [command] [flags]
//
// Running without arguments launches the interactive terminal wizard.
// See 'devicechat --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/devicechat/internal/urls"
	"github.com/muurk/devicechat/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "devicechat",
	Short: "Device Chat Room",
	Long: `Connect your nearby devices and chat with all of them at once.

The wizard scans for devices, lets you pick which ones to connect, finalizes
their setup and opens a chat room where the connected devices reply together.

The Gemini API key is read from GEMINI_API_KEY (or API_KEY), either from the
environment or from a .env file in the working directory. Create one at
` + urls.GeminiAPIKey + `

Report issues at ` + urls.Issues + `

If no command is specified, the interactive wizard will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: OS config dir/devicechat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build information as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Printf("devicechat %s (commit: %s)\n", info.Version, info.Commit)
		fmt.Printf("  %s %s\n", info.GoVersion, info.Platform)
		return nil
	},
}
