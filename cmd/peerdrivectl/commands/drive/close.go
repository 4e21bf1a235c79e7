package drive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var closeCmd = &cobra.Command{
	Use:   "close <handle>",
	Short: "Close a drive session",
	Long: `Close the drive session identified by handle.

The handle is permanently retired; reopening the drive by key yields a new
handle.

Examples:
  peerdrivectl drive close 3`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func runClose(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	if err := client.CloseDrive(handle); err != nil {
		return fmt.Errorf("failed to close drive: %w", err)
	}

	fmt.Printf("Drive %d closed\n", handle)
	return nil
}
