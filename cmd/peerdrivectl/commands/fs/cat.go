package fs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var (
	catOffset int64
	catLength int64
)

var catCmd = &cobra.Command{
	Use:   "cat <handle> <path>",
	Short: "Print file content",
	Long: `Print the content of a file to stdout.

Use --offset and --length to read a byte range; ranges past end-of-file
are truncated.

Examples:
  peerdrivectl fs cat 1 docs/readme.md
  peerdrivectl fs cat 1 logs/big.log --offset 1024 --length 4096`,
	Args: cobra.ExactArgs(2),
	RunE: runCat,
}

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "Byte offset to start reading at")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "Number of bytes to read (-1 for the rest of the file)")
}

func runCat(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	client := cmdutil.GetClient()
	data, err := client.ReadRange(handle, args[1], catOffset, catLength)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	_, err = os.Stdout.Write(data)
	return err
}
