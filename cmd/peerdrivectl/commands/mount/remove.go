package mount

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var removeCmd = &cobra.Command{
	Use:   "remove <handle> <path>",
	Short: "Remove a mount point",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	if err := client.DeleteMount(handle, args[1]); err != nil {
		return fmt.Errorf("failed to unmount: %w", err)
	}

	fmt.Printf("Unmounted %q on drive %d\n", args[1], handle)
	return nil
}
