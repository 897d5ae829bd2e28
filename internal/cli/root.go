// Package cli wires the peopledb cobra commands.
package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/peopledb/internal/config"
)

// BuildInfo identifies the binary; main fills it from linker flags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	cfg *config.Config

	configPath   string
	dbPath       string
	dsn          string
	backend      string
	logLevel     string
	logFormat    string
	gormLogLevel string
}

// NewRootCommand builds the peopledb command tree, writing command output to out.
func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "peopledb",
		Short:         "People and pets in a small SQLite database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database file (default people.db)")
	pf.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (gorm backend only)")
	pf.StringVar(&opts.backend, "backend", "", "storage backend: gorm or sql")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")
	pf.StringVar(&opts.gormLogLevel, "gorm-log-level", "", "gorm SQL log level: silent, error, warn, info")

	cmd.AddCommand(newRunCommand(out, opts))
	cmd.AddCommand(newMigrateCommand(out, opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newVersionCommand(out, build))
	return cmd
}

// resolve loads the config file and environment, applies explicitly set
// flags on top and configures logging.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := []struct {
		name string
		src  string
		dst  *string
	}{
		{"db", o.dbPath, &cfg.DBPath},
		{"dsn", o.dsn, &cfg.DSN},
		{"backend", o.backend, &cfg.Backend},
		{"log-level", o.logLevel, &cfg.LogLevel},
		{"log-format", o.logFormat, &cfg.LogFormat},
		{"gorm-log-level", o.gormLogLevel, &cfg.GormLogLevel},
	}
	for _, ov := range overrides {
		if flags.Changed(ov.name) {
			*ov.dst = ov.src
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func setupLogging(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch format {
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case "console", "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
