// Package commands implements the peerdrivectl CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/commands/drive"
	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/commands/fs"
	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/commands/mount"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "peerdrivectl",
	Short: "peerdrivectl - control a running peerdrive daemon",
	Long: `peerdrivectl talks to a running peerdrive daemon over its control API:
open and close drives, manage mounts, and move files in and out.

The server address comes from --server, the PEERDRIVE_SERVER environment
variable, or defaults to http://localhost:8080.

Use "peerdrivectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ServerURL, "server", "", "daemon control API address (default: http://localhost:8080)")

	rootCmd.AddCommand(drive.Cmd)
	rootCmd.AddCommand(mount.Cmd)
	rootCmd.AddCommand(fs.Cmd)
}
