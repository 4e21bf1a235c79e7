package mount

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
	"github.com/peerdrive/peerdrive/internal/cli/output"
	"github.com/peerdrive/peerdrive/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list <handle>",
	Short: "List mount points of a drive",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

// mountList renders mounts as a table.
type mountList []apiclient.Mount

// Headers implements output.TableRenderer.
func (ml mountList) Headers() []string {
	return []string{"PATH", "TARGET KEY"}
}

// Rows implements output.TableRenderer.
func (ml mountList) Rows() [][]string {
	rows := make([][]string, 0, len(ml))
	for _, m := range ml {
		rows = append(rows, []string{m.Path, m.TargetKey})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	mounts, err := client.ListMounts(handle)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}

	if len(mounts) == 0 {
		fmt.Println("No mounts.")
		return nil
	}

	return output.PrintTable(os.Stdout, mountList(mounts))
}
