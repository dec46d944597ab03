package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ransched/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		var err error
		if configFile != "" {
			path = configFile
			err = config.InitConfigToPath(configFile, initForce)
		} else {
			path, err = config.InitConfig(initForce)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Configuration file created at: %s\n", path)
		fmt.Println("\nNext steps:")
		fmt.Println("  1. Edit the configuration file to describe your cells")
		fmt.Println("  2. Start the scheduler with: ransched start")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
