// Command spiderd is a minimal operator-facing binary around the spider
// runtime: it loads a config file, builds a route table and middleware
// chain from it, and serves.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the base command: a cobra root with serve/version
// subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spiderd",
		Short: "spider HTTP/1.1 + WebSocket server runtime",
	}
	cmd.AddCommand(newServeCmd(), newVersionCmd())
	return cmd
}
