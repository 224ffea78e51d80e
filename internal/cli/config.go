package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/figtools/pgfkit/pkg/config"
)

// newConfigCmd creates the config command, which prints the effective merged
// configuration: defaults overlaid by the project file.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg := config.New(logger)
			loaded := false
			if _, err := os.Stat(config.FileName); err == nil {
				if err := cfg.Load(config.FileName); err != nil {
					return err
				}
				loaded = true
			}

			if loaded {
				printInfo("Using %s", config.FileName)
			} else {
				printInfo("No %s found, showing defaults", config.FileName)
			}

			for _, section := range cfg.Sections() {
				entries, err := cfg.Section(section)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					continue
				}
				fmt.Println()
				fmt.Println(StyleTitle.Render("[" + section + "]"))
				for _, kv := range entries {
					printKeyValue(kv[0], kv[1])
				}
			}
			return nil
		},
	}
}
