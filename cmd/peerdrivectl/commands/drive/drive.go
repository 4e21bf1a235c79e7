// Package drive implements the drive management subcommands.
package drive

import "github.com/spf13/cobra"

// Cmd is the parent command for drive management.
var Cmd = &cobra.Command{
	Use:   "drive",
	Short: "Manage drives",
	Long:  `Create, list, inspect, and close drives on the daemon.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(closeCmd)
}
