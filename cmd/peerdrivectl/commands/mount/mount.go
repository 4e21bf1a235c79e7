// Package mount implements the mount table subcommands.
package mount

import "github.com/spf13/cobra"

// Cmd is the parent command for mount management.
var Cmd = &cobra.Command{
	Use:   "mount",
	Short: "Manage mounts",
	Long:  `Splice drives into each other's namespaces and inspect the mount table.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(listCmd)
}
