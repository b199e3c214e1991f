// Command swisssim plays simulated tournaments against an in-process
// tournament service and reports how often pairing fails to converge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func root() *cobra.Command {
	root := &cobra.Command{
		Use:  "swisssim",
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Show debug logs")
	root.AddCommand(runCommand())

	return root
}
