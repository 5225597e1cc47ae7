package patch_migrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Maksumys/patch-migrator/internal/models"
	"github.com/Maksumys/patch-migrator/internal/repository"
	"gorm.io/gorm"
)

var _ Driver = (*GormDriver)(nil)

// GormDriver хранит примененные патчи в таблице entitys любого диалекта gorm.
type GormDriver struct {
	db *gorm.DB
}

func NewGormDriver(db *gorm.DB) *GormDriver {
	return &GormDriver{db: db}
}

// Handler возвращает соединение для моделей, которые работают с ним вместе с патчами.
func (d *GormDriver) Handler() *gorm.DB {
	return d.db
}

func (d *GormDriver) EnsureSchema(ctx context.Context) error {
	if repository.HasEntityTable(d.db.WithContext(ctx)) {
		return nil
	}

	if err := repository.CreateEntityTable(ctx, d.db); err != nil {
		return fmt.Errorf("create %s table: %w: %w", models.EntityTable, ErrStoreUnavailable, err)
	}
	return nil
}

func (d *GormDriver) Read(ctx context.Context, entity string) (AppliedSet, error) {
	applied, err := repository.GetAppliedSet(ctx, d.db, entity)
	// модель еще не мигрировалась, начинаем с пустого списка
	if errors.Is(err, repository.ErrNotFound) {
		return AppliedSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return applied, nil
}

func (d *GormDriver) Write(ctx context.Context, entity string, applied AppliedSet) error {
	if err := repository.SaveAppliedSet(ctx, d.db, entity, applied); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (d *GormDriver) Exec(ctx context.Context, statement string) error {
	return repository.Exec(ctx, d.db, statement)
}
