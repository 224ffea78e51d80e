package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/figtools/pgfkit/pkg/config"
	"github.com/figtools/pgfkit/pkg/layout"
	"github.com/figtools/pgfkit/pkg/units"
)

// newLayoutCmd creates the layout command. It resolves a placement request
// against the configured document geometry, which is handy from Makefiles
// and for checking a configuration without rendering anything.
func newLayoutCmd() *cobra.Command {
	var (
		width     sizeFlag
		height    sizeFlag
		columns   int
		margin    bool
		fullWidth bool
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the figure size for a placement request",
		Long: `Resolves a width and height request against the document geometry from
the project configuration and prints the resulting size in inches.

Width and height accept a fraction of the available size (for example 0.5)
or an explicit dimension such as 57mm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg := config.New(logger)
			if _, err := os.Stat(config.FileName); err == nil {
				if err := cfg.Load(config.FileName); err != nil {
					return err
				}
			}

			geom, err := geometryFromConfig(cfg)
			if err != nil {
				return err
			}

			req := layout.Request{
				Width:     width.value,
				Height:    height.value,
				Margin:    margin,
				FullWidth: fullWidth,
			}
			if cmd.Flags().Changed("columns") {
				req.Columns = &columns
			}

			size, err := layout.Compute(geom, req)
			if err != nil {
				return err
			}

			if plain {
				fmt.Printf("%g %g\n", size.W, size.H)
				return nil
			}
			printKeyValue("width", fmt.Sprintf("%gin", size.W))
			printKeyValue("height", fmt.Sprintf("%gin", size.H))
			return nil
		},
	}

	cmd.Flags().VarP(&width, "width", "W", "width request (fraction or dimension)")
	cmd.Flags().VarP(&height, "height", "H", "height request (fraction or dimension)")
	cmd.Flags().IntVarP(&columns, "columns", "c", 0, "span the figure over this many columns")
	cmd.Flags().BoolVar(&margin, "margin", false, "place the figure in the margin par")
	cmd.Flags().BoolVar(&fullWidth, "full-width", false, "span text and margin")
	cmd.Flags().BoolVar(&plain, "plain", false, "print bare numbers for scripting")

	return cmd
}

// sizeFlag accepts a fraction of the available size or an explicit
// dimension string. Unset means the layout default.
type sizeFlag struct {
	value any
}

var _ pflag.Value = (*sizeFlag)(nil)

func (f *sizeFlag) String() string {
	if f.value == nil {
		return ""
	}
	return fmt.Sprint(f.value)
}

func (f *sizeFlag) Set(s string) error {
	if s == "" {
		f.value = nil
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		f.value = v
		return nil
	}
	// Validate the dimension here so a typo fails at flag parsing.
	if _, err := units.ParseDimension(s); err != nil {
		return err
	}
	f.value = s
	return nil
}

func (f *sizeFlag) Type() string { return "size" }

// geometryFromConfig reads the document geometry out of the tex section.
func geometryFromConfig(cfg *config.Config) (layout.Geometry, error) {
	var geom layout.Geometry
	var err error
	if geom.TextWidth, err = cfg.Dimension("tex", "text_width"); err != nil {
		return geom, err
	}
	if geom.TextHeight, err = cfg.Dimension("tex", "text_height"); err != nil {
		return geom, err
	}
	if geom.NumColumns, err = cfg.Int("tex", "num_columns"); err != nil {
		return geom, err
	}
	if geom.ColumnSep, err = cfg.Dimension("tex", "columnsep"); err != nil {
		return geom, err
	}
	if geom.MarginparWidth, err = cfg.Dimension("tex", "marginpar_width"); err != nil {
		return geom, err
	}
	if geom.MarginparSep, err = cfg.Dimension("tex", "marginpar_sep"); err != nil {
		return geom, err
	}
	return geom, nil
}
