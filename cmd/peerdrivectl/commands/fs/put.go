package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerdrive/peerdrive/cmd/peerdrivectl/cmdutil"
)

var putFrom string

var putCmd = &cobra.Command{
	Use:   "put <handle> <path>",
	Short: "Write a file",
	Long: `Write a file on the drive, replacing any previous content.

Content is read from --from, or from stdin when --from is omitted.

Examples:
  peerdrivectl fs put 1 docs/readme.md --from ./README.md
  echo "hello" | peerdrivectl fs put 1 notes/hello.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putFrom, "from", "", "Local file to read content from (default: stdin)")
}

func runPut(cmd *cobra.Command, args []string) error {
	handle, err := cmdutil.ParseHandle(args[0])
	if err != nil {
		return err
	}

	var data []byte
	if putFrom != "" {
		data, err = os.ReadFile(putFrom)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", putFrom, err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	client := cmdutil.GetClient()
	if err := client.WriteFile(handle, args[1], data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Wrote %d bytes to %q on drive %d\n", len(data), args[1], handle)
	return nil
}
