package fs

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var lsCmd = &cobra.Command{
	Use:   "ls <handle> [path]",
	Short: "List directory entries",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}
	path := ""
	if len(args) > 1 {
		path = args[1]
	}

	client := cmdutil.GetClient()
	names, err := client.Readdir(handle, path)
	if err != nil {
		return fmt.Errorf("failed to list directory: %w", err)
	}

	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
