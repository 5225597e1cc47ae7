package patch_migrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// ErrNoDriver возвращается NewPatchManager без driver.
var ErrNoDriver = errors.New("patch manager requires a driver")

// NewPatchManager создает экземпляр управляющего патчами моделей. Все запросы выполняются через driver,
// он же хранит список примененных патчей каждой модели.
func NewPatchManager(driver Driver, opts ...ManagerOption) (*PatchManager, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}

	manager := PatchManager{
		driver:           driver,
		logger:           slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		tolerantPrefixes: defaultTolerantPrefixes,
	}

	for _, opt := range opts {
		opt(&manager)
	}

	return &manager, nil
}

type PatchManager struct {
	driver           Driver
	logger           *slog.Logger
	concurrency      int
	tolerantPrefixes []string
}

// Status возвращает для каждой модели каталога имена патчей, которые еще не были применены.
// Патчи не выполняются, но системная таблица создается при необходимости.
func (m *PatchManager) Status(ctx context.Context, catalog Catalog) (map[string][]string, error) {
	if err := m.initSystemTables(ctx); err != nil {
		return nil, err
	}

	status := make(map[string][]string, len(catalog))
	for _, entity := range catalog.entities() {
		applied, err := m.driver.Read(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("read applied patches of %s: %w", entity, err)
		}

		status[entity] = newPatchPlan(catalog[entity], applied).Names()
	}

	return status, nil
}

func (m *PatchManager) newApplier(entity string, patches map[string]Patch) *patchApplier {
	logger := m.logger.With("entity", entity)

	return &patchApplier{
		entity:  entity,
		patches: patches,
		store:   m.driver,
		runner: statementRunner{
			executor: m.driver,
			logger:   logger,
			tolerant: m.tolerantPrefixes,
		},
		logger: logger,
	}
}

func (m *PatchManager) initSystemTables(ctx context.Context) error {
	if err := m.driver.EnsureSchema(ctx); err != nil {
		m.logger.Error("failed to prepare system table", "error", err)
		return fmt.Errorf("ensure system table: %w", err)
	}
	return nil
}

func (c Catalog) entities() []string {
	entities := make([]string, 0, len(c))
	for entity := range c {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	return entities
}
