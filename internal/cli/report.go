package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/figtools/pgfkit/pkg/track"
)

// newReportCmd creates the report command for inspecting and converting the
// dependency reports emitted alongside figures.
func newReportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Pretty-print or convert a dependency report",
		Long: `Reads a dependency report emitted during figure generation and either
pretty-prints it or converts it to JSON for external tooling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := track.ReadReportFile(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return track.WriteJSON(entries, os.Stdout)
			}

			var reads, writes []track.Entry
			for _, e := range entries {
				if e.Role == track.RoleWrite {
					writes = append(writes, e)
				} else {
					reads = append(reads, e)
				}
			}

			printInfo("%d dependencies, %d products", len(reads), len(writes))
			for _, e := range reads {
				printFile(e.Path)
			}
			if len(writes) > 0 {
				printDetail("produces:")
				for _, e := range writes {
					printFile(e.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")

	return cmd
}
