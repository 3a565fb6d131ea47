package models

import "time"

// Equipment is a catalog row for one spare-part definition. Descriptive
// fields stay editable after lots reference it; identity fields do not.
type Equipment struct {
	ID               string    `gorm:"column:id;type:text;primaryKey"`
	TypeID           string    `gorm:"column:type_id;type:text;not null"`
	Code             string    `gorm:"column:code;uniqueIndex;not null"`
	Name             string    `gorm:"column:name;not null"`
	Model            *string   `gorm:"column:model"`
	Size             *string   `gorm:"column:size"`
	Unit             string    `gorm:"column:unit;not null"`
	ReorderThreshold int       `gorm:"column:reorder_threshold;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
