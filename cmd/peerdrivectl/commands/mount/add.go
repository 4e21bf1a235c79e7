package mount

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var addCmd = &cobra.Command{
	Use:   "add <handle> <path> <target-key>",
	Short: "Mount a drive at a path",
	Long: `Mount the drive identified by target-key at path inside the namespace of
the drive identified by handle.

The target drive does not have to be open; it is opened on demand when the
path is first accessed.

Examples:
  peerdrivectl mount add 1 projects/shared 4f1d...c2a9`,
	Args: cobra.ExactArgs(3),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	if err := client.CreateMount(handle, args[1], args[2]); err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}

	fmt.Printf("Mounted %s at %q on drive %d\n", args[2], args[1], handle)
	return nil
}
