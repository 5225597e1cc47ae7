package cli

import (
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// overrides of the config file, applied when the flag is set
	Dir         string
	Driver      string
	DSN         string
	Hosts       []string
	Keyspace    string
	Concurrency int
}

// NewRootCommand creates the root command of patch-migrate.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "patch-migrate",
		Short: "Apply dependency-ordered schema patches to models",
		Long: `Apply <model>.cql and <model>.<patch>.cql files to a store.

Every model is migrated on its own: the .main patch first, then every patch
whose "deps:" are applied. Progress is saved after each patch.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&opts.Dir, "dir", "d", "", "directory with patch files")
	flags.StringVar(&opts.Driver, "driver", "", "store driver (postgres|sqlite|cassandra)")
	flags.StringVar(&opts.DSN, "dsn", "", "connection string for postgres and sqlite")
	flags.StringSliceVar(&opts.Hosts, "hosts", nil, "cassandra hosts")
	flags.StringVar(&opts.Keyspace, "keyspace", "", "cassandra keyspace")
	flags.IntVar(&opts.Concurrency, "concurrency", 0, "models migrated at once, 0 for all")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// config merges the config file with flags set on cmd.
func (o *RootOptions) config(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfig(o.ConfigPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir = o.Dir
	}
	if flags.Changed("driver") {
		cfg.Driver = o.Driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = o.DSN
	}
	if flags.Changed("hosts") {
		cfg.Cassandra.Hosts = o.Hosts
	}
	if flags.Changed("keyspace") {
		cfg.Cassandra.Keyspace = o.Keyspace
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = o.Concurrency
	}

	return cfg, cfg.Validate()
}

// loggers returns the logrus logger of the command and a slog logger writing through it.
// The returned func closes the pipe between them.
func (o *RootOptions) loggers(w io.Writer) (*logrus.Logger, *slog.Logger, func()) {
	log := logrus.New()
	log.SetOutput(w)

	level := slog.LevelInfo
	if o.Verbose {
		log.SetLevel(logrus.DebugLevel)
		level = slog.LevelDebug
	}

	pipe := log.Writer()
	handler := slog.NewTextHandler(pipe, &slog.HandlerOptions{Level: level})
	return log, slog.New(handler), func() { _ = pipe.Close() }
}
