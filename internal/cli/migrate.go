package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	migrator "github.com/Maksumys/patch-migrator"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending patches to every model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runMigrate(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.config(cmd)
	if err != nil {
		return err
	}

	log, logger, closeLog := opts.loggers(cmd.ErrOrStderr())
	defer closeLog()

	catalog, err := migrator.LoadCatalog(os.DirFS(cfg.Dir))
	if err != nil {
		return err
	}
	log.WithField("dir", cfg.Dir).WithField("models", len(catalog)).Debug("loaded patches")

	manager, closeDriver, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDriver()

	outcomes, err := manager.Migrate(contextOrBackground(ctx), catalog)
	if err != nil {
		return err
	}

	for _, entity := range outcomes.Failed() {
		log.WithField("entity", entity).WithError(outcomes[entity].Err).Error("model migration failed")
	}
	for _, entity := range outcomes.Stuck() {
		log.WithField("entity", entity).Warn("model migration is stuck")
	}

	renderOutcomes(cmd.OutOrStdout(), outcomes)

	if failed, stuck := len(outcomes.Failed()), len(outcomes.Stuck()); failed > 0 || stuck > 0 {
		return fmt.Errorf("%d models failed, %d models stuck", failed, stuck)
	}
	return nil
}

func newManager(cfg Config, logger *slog.Logger) (*migrator.PatchManager, func(), error) {
	driver, closeDriver, err := openDriver(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []migrator.ManagerOption{
		migrator.WithLogger(logger),
		migrator.WithConcurrency(cfg.Concurrency),
	}
	if len(cfg.TolerantPrefixes) > 0 {
		opts = append(opts, migrator.WithTolerantPrefixes(cfg.TolerantPrefixes...))
	}

	manager, err := migrator.NewPatchManager(driver, opts...)
	if err != nil {
		closeDriver()
		return nil, nil, err
	}
	return manager, closeDriver, nil
}

func renderOutcomes(w io.Writer, outcomes migrator.Outcomes) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"MODEL", "STATE", "APPLIED", "DETAILS"})

	entities := make([]string, 0, len(outcomes))
	for entity := range outcomes {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		outcome := outcomes[entity]

		var details string
		switch outcome.State {
		case migrator.StateFailed:
			details = outcome.Err.Error()
		case migrator.StateStuck:
			stuck := make([]string, 0, len(outcome.Stuck))
			for _, patch := range outcome.Stuck {
				stuck = append(stuck, patch.String())
			}
			details = strings.Join(stuck, "; ")
		}

		t.AppendRow(table.Row{entity, string(outcome.State), strings.Join(outcome.Applied, ", "), details})
	}

	t.Render()
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
