package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/figtools/pgfkit/pkg/buildinfo"
	"github.com/figtools/pgfkit/pkg/config"
	"github.com/figtools/pgfkit/pkg/figure"
	"github.com/figtools/pgfkit/pkg/postprocess"
)

// newPostprocessCmd creates the postprocess command, a standalone run of the
// output rewrites over an already-rendered document.
func newPostprocessCmd() *cobra.Command {
	var (
		output  string
		script  string
		tikz    bool
		rasters bool
		keep    bool
	)

	cmd := &cobra.Command{
		Use:   "postprocess <figure.pgf>",
		Short: "Rewrite a rendered PGF document into its final form",
		Long: `Applies the output rewrites to an already-rendered PGF document:
tags the creator comment, fixes the usage instructions, optionally renames
the picture environment to tikzpicture and fixes raster image paths.

Rewrite toggles default to the project configuration and can be overridden
with flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			in := args[0]

			cfg := config.New(logger)
			if _, err := os.Stat(config.FileName); err == nil {
				if err := cfg.Load(config.FileName); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("tikzpicture") {
				var err error
				if tikz, err = cfg.Bool("postprocessing", "tikzpicture"); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("fix-raster-paths") {
				var err error
				if rasters, err = cfg.Bool("postprocessing", "fix_raster_paths"); err != nil {
					return err
				}
			}

			if output == "" {
				output = strings.TrimSuffix(in, filepath.Ext(in)) + figure.FinalExt
			}
			if script != "" {
				if abs, err := filepath.Abs(script); err == nil {
					script = abs
				}
			}

			prog := newProgress(logger)
			err := postprocess.Run(in, output, postprocess.Options{
				Script:           script,
				Version:          buildinfo.Tag(),
				Tikzpicture:      tikz,
				FixRasterPaths:   rasters,
				KeepIntermediate: keep,
			})
			if err != nil {
				return err
			}
			prog.done("Post-processed " + in)
			printSuccess("Wrote final figure")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: input with the final extension)")
	cmd.Flags().StringVar(&script, "script", "", "originating script path to record in the header")
	cmd.Flags().BoolVar(&tikz, "tikzpicture", false, "rename the pgfpicture environment to tikzpicture")
	cmd.Flags().BoolVar(&rasters, "fix-raster-paths", true, "prefix raster image paths with the output directory")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the intermediate document")

	return cmd
}
