package repository

import (
	"context"
	"errors"

	"github.com/Maksumys/patch-migrator/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

func GetAppliedSet(ctx context.Context, db *gorm.DB, name string) (models.AppliedSet, error) {
	var row models.EntityModel
	res := db.WithContext(ctx).Where("name = ?", name).First(&row)

	if res.Error != nil {
		switch {
		case errors.Is(res.Error, gorm.ErrRecordNotFound):
			return models.AppliedSet{}, ErrNotFound
		default:
			return nil, res.Error
		}
	}

	if row.Patches == nil {
		return models.AppliedSet{}, nil
	}

	return row.Patches, nil
}

// SaveAppliedSet overwrites the stored set for the entity, inserting the row on first save.
func SaveAppliedSet(ctx context.Context, db *gorm.DB, name string, applied models.AppliedSet) error {
	row := models.EntityModel{Name: name, Patches: applied}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"patches"}),
	}).Create(&row).Error
}

func HasEntityTable(db *gorm.DB) bool {
	return db.Migrator().HasTable(models.EntityModel{}.TableName())
}

func CreateEntityTable(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`
		CREATE TABLE IF NOT EXISTS entitys (
			name VARCHAR(255) NOT NULL,
			patches TEXT,
			PRIMARY KEY (name)
		)
	`).Error
}

func Exec(ctx context.Context, db *gorm.DB, statement string) error {
	return db.WithContext(ctx).Exec(statement).Error
}
