package fs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
	"github.com/peerdrive/peerdrive/internal/cli/output"
)

var statCmd = &cobra.Command{
	Use:   "stat <handle> <path>",
	Short: "Show entry metadata",
	Args:  cobra.ExactArgs(2),
	RunE:  runStat,
}

func runStat(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	entry, err := client.Stat(handle, args[1])
	if err != nil {
		return fmt.Errorf("failed to stat: %w", err)
	}

	kind := "file"
	if entry.IsDirectory {
		kind = "directory"
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"Path", args[1]},
		{"Kind", kind},
		{"Size", strconv.FormatUint(entry.Size, 10)},
		{"Mode", fmt.Sprintf("%o", entry.Mode)},
		{"UID", strconv.FormatUint(uint64(entry.UID), 10)},
		{"GID", strconv.FormatUint(uint64(entry.GID), 10)},
	})
}
