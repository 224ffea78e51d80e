// Package cli implements the pgfkit command-line interface.
//
// The CLI wraps the library for use from build systems and the shell:
// post-processing rendered PGF documents, computing figure sizes, inspecting
// the effective configuration and working with dependency reports. It is
// built using cobra with verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - postprocess: Rewrite a rendered PGF document into its final form
//   - layout: Compute the figure size for a placement request
//   - config: Print the effective merged configuration
//   - report: Pretty-print or convert a dependency report
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/figtools/pgfkit/pkg/buildinfo"
)

// Execute runs the pgfkit CLI and returns an error if any command fails.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "pgfkit",
		Short:        "pgfkit builds publication figures as PGF for LaTeX documents",
		Long:         `pgfkit configures, post-processes and dependency-tracks PGF figures so they drop cleanly into a LaTeX document and its build system.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newPostprocessCmd())
	root.AddCommand(newLayoutCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newReportCmd())

	return root.ExecuteContext(ctx)
}
