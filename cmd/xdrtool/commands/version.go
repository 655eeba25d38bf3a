package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: skipSetup,
	Run:               runVersion,
}

// skipSetup lets version run without a config file.
func skipSetup(*cobra.Command, []string) error { return nil }

func runVersion(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "xdrtool %s (commit %s, built %s, %s)\n", Version, Commit, Date, runtime.Version())
}
