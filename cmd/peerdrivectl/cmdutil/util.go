// Package cmdutil provides shared utilities for peerdrivectl commands.
package cmdutil

import (
	"fmt"
	"os"
	"strconv"

	"github.com/peerdrive/peerdrive/pkg/apiclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
}

// DefaultServerURL is used when --server is not given and the environment
// does not override it.
const DefaultServerURL = "http://localhost:8080"

// GetClient returns an API client for the configured server.
func GetClient() *apiclient.Client {
	url := Flags.ServerURL
	if url == "" {
		url = os.Getenv("PEERDRIVE_SERVER")
	}
	if url == "" {
		url = DefaultServerURL
	}
	return apiclient.New(url)
}

// ParseHandle parses a drive handle argument.
func ParseHandle(arg string) (uint64, error) {
	handle, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || handle == 0 {
		return 0, fmt.Errorf("invalid drive handle: %q", arg)
	}
	return handle, nil
}
