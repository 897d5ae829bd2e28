package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/peopledb/internal/config"
	"github.com/thebtf/peopledb/internal/db/gorm"
	"github.com/thebtf/peopledb/internal/storage"
)

var errRollbackUnsupported = errors.New("rollback is only supported by the gorm backend")

func newMigrateCommand(out io.Writer, opts *rootOptions) *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back the last one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cfg.Backend == config.BackendSQL {
				if rollback {
					return errRollbackUnsupported
				}
				store, err := storage.Open(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				_, err = fmt.Fprintln(out, "schema up to date")
				return err
			}

			// Opening applies every pending migration.
			store, err := storage.OpenGorm(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if rollback {
				ids := gorm.MigrationIDs()
				if err := store.RollbackLast(); err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
				last := ids[len(ids)-1]
				log.Info().Str("migration", last).Msg("Migration rolled back")
				_, err = fmt.Fprintf(out, "rolled back %s\n", last)
				return err
			}

			_, err = fmt.Fprintf(out, "schema up to date (%s)\n", strings.Join(gorm.MigrationIDs(), ", "))
			return err
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back the most recent migration")
	return cmd
}
