package patch_migrator

import (
	"context"
	"io/fs"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Migrate применяет патчи каталога ко всем моделям. Сначала создается системная таблица entitys, затем для
// каждой модели запускается отдельная горутина: патч .main выполняется первым, остальные патчи выполняются,
// как только все их зависимости применены. После каждого патча список примененных сохраняется в entitys.
//
// Ошибка возвращается, только если не удалось подготовить системную таблицу. Ошибки и зависшие патчи
// отдельной модели не останавливают остальные и возвращаются в Outcomes.
func (m *PatchManager) Migrate(ctx context.Context, catalog Catalog) (Outcomes, error) {
	m.logger.Info("preparing patches execution", "models", len(catalog))

	if err := m.initSystemTables(ctx); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		outcomes = make(Outcomes, len(catalog))
		group    errgroup.Group
	)

	if m.concurrency > 0 {
		group.SetLimit(m.concurrency)
	}

	for _, entity := range catalog.entities() {
		applier := m.newApplier(entity, catalog[entity])

		// горутины не возвращают ошибок, чтобы сбой одной модели не влиял на другие
		group.Go(func() error {
			outcome := applier.apply(ctx)

			mu.Lock()
			outcomes[outcome.Entity] = outcome
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	m.logger.Info("done applying patches",
		"models", len(outcomes),
		"failed", outcomes.Failed(),
		"stuck", outcomes.Stuck())

	return outcomes, nil
}

// MigrateFS загружает каталог патчей из fsys и применяет его. См. LoadCatalog и Migrate.
func (m *PatchManager) MigrateFS(ctx context.Context, fsys fs.FS) (Outcomes, error) {
	catalog, err := LoadCatalog(fsys)
	if err != nil {
		return nil, err
	}

	return m.Migrate(ctx, catalog)
}
