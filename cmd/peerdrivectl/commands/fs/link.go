package fs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var linkCmd = &cobra.Command{
	Use:   "link <handle> <target> <link>",
	Short: "Create a symbolic link",
	Long: `Create a symbolic link at link pointing at target.

Reads and listings through the link transparently resolve to the target.

Examples:
  peerdrivectl fs link 1 docs/current-release.md latest.md`,
	Args: cobra.ExactArgs(3),
	RunE: runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	if err := client.Symlink(handle, args[1], args[2]); err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	fmt.Printf("Linked %q -> %q on drive %d\n", args[2], args[1], handle)
	return nil
}
