package drive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new drive",
	Long: `Create a new drive on the daemon.

The daemon allocates a fresh identity key and returns the session handle.

Examples:
  peerdrivectl drive create`,
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	d, err := client.CreateDrive()
	if err != nil {
		return fmt.Errorf("failed to create drive: %w", err)
	}

	fmt.Printf("Drive created\n")
	fmt.Printf("  Handle: %d\n", d.Handle)
	fmt.Printf("  Key:    %s\n", d.Key)
	return nil
}
