package drive

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
	"github.com/peerdrive/peerdrive/internal/cli/output"
)

var getCmd = &cobra.Command{
	Use:   "get <handle>",
	Short: "Show one drive",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	d, err := client.GetDrive(handle)
	if err != nil {
		return fmt.Errorf("failed to get drive: %w", err)
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"Handle", strconv.FormatUint(d.Handle, 10)},
		{"Key", d.Key},
	})
}
