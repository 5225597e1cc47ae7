package cli

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	migrator "github.com/Maksumys/patch-migrator"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List patches not yet applied to each model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runStatus(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.config(cmd)
	if err != nil {
		return err
	}

	_, logger, closeLog := opts.loggers(cmd.ErrOrStderr())
	defer closeLog()

	catalog, err := migrator.LoadCatalog(os.DirFS(cfg.Dir))
	if err != nil {
		return err
	}

	manager, closeDriver, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDriver()

	status, err := manager.Status(contextOrBackground(ctx), catalog)
	if err != nil {
		return err
	}

	entities := make([]string, 0, len(status))
	for entity := range status {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"MODEL", "PENDING"})
	for _, entity := range entities {
		pending := "up to date"
		if len(status[entity]) > 0 {
			pending = strings.Join(status[entity], ", ")
		}
		t.AppendRow(table.Row{entity, pending})
	}
	t.Render()

	return nil
}
