package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata set at build time via -ldflags
var (
	Commit    = "none"
	BuildDate = "unknown"
)

// newVersionCmd creates the 'version' command
func newVersionCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{
					"version":    Version,
					"commit":     Commit,
					"build_date": BuildDate,
					"go_version": runtime.Version(),
					"platform":   runtime.GOOS + "/" + runtime.GOARCH,
				})
			}

			_, _ = fmt.Fprintf(stdout, "Version: %s\n", Version)
			_, _ = fmt.Fprintf(stdout, "Commit:  %s\n", Commit)
			_, _ = fmt.Fprintf(stdout, "Built:   %s\n", BuildDate)
			if verbose, _ := cmd.Flags().GetBool("detail"); verbose || cfg.Verbose {
				_, _ = fmt.Fprintf(stdout, "Go Version: %s\n", runtime.Version())
				_, _ = fmt.Fprintf(stdout, "Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolP("detail", "d", false, "Show extended build information")

	return cmd
}
