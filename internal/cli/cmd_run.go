package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thebtf/peopledb/internal/config"
	"github.com/thebtf/peopledb/internal/storage"
	"github.com/thebtf/peopledb/internal/tutorial"
)

func newRunCommand(out io.Writer, opts *rootOptions) *cobra.Command {
	var (
		keepExisting bool
		output       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create the example family and print every query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("output") {
				cfg.Output = output
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			store, err := storage.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := tutorial.Run(cmd.Context(), store, tutorial.Options{KeepExisting: keepExisting})
			if err != nil {
				return fmt.Errorf("run tutorial: %w", err)
			}
			return tutorial.Print(out, report, cfg.Output)
		},
	}

	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "Keep rows from earlier runs instead of clearing both tables")
	cmd.Flags().StringVarP(&output, "output", "o", config.OutputText, "Output format: text or json")
	return cmd
}
