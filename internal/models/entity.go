package models

// EntityTable is the system table that keeps applied patches per entity.
const EntityTable = "entitys"

type EntityModel struct {
	Name    string     `gorm:"primaryKey;type:varchar(255)"`
	Patches AppliedSet `gorm:"type:text"`
}

func (v EntityModel) TableName() string {
	return EntityTable
}
