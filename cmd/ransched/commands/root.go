// Package commands implements the ransched CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configFile string
)

// SetVersion stores the build-time version information.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "ransched",
	Short: "NR MAC scheduler daemon",
	Long: `ransched runs an NR MAC downlink/uplink scheduler: per-cell, per-slot
resource allocation with HARQ management, concurrent across cells and
optionally across overlapping slots.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to config file (default: $XDG_CONFIG_HOME/ransched/config.yaml)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ransched %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
