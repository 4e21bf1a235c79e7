// Package fs implements the file and metadata subcommands.
package fs

import "github.com/spf13/cobra"

// Cmd is the parent command for filesystem operations.
var Cmd = &cobra.Command{
	Use:   "fs",
	Short: "Work with files on a drive",
	Long:  `Read, write, list, and link files on an open drive.`,
}

func init() {
	Cmd.AddCommand(catCmd)
	Cmd.AddCommand(putCmd)
	Cmd.AddCommand(lsCmd)
	Cmd.AddCommand(statCmd)
	Cmd.AddCommand(linkCmd)
}
