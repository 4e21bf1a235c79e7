package drive

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
	"github.com/peerdrive/peerdrive/internal/cli/output"
	"github.com/peerdrive/peerdrive/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open drives",
	Long: `List every drive currently open on the daemon.

Examples:
  peerdrivectl drive list`,
	RunE: runList,
}

// driveList renders drives as a table.
type driveList []apiclient.Drive

// Headers implements output.TableRenderer.
func (dl driveList) Headers() []string {
	return []string{"HANDLE", "KEY"}
}

// Rows implements output.TableRenderer.
func (dl driveList) Rows() [][]string {
	rows := make([][]string, 0, len(dl))
	for _, d := range dl {
		rows = append(rows, []string{strconv.FormatUint(d.Handle, 10), d.Key})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()

	drives, err := client.ListDrives()
	if err != nil {
		return fmt.Errorf("failed to list drives: %w", err)
	}

	if len(drives) == 0 {
		fmt.Println("No open drives.")
		return nil
	}

	return output.PrintTable(os.Stdout, driveList(drives))
}
