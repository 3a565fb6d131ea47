package models

import "time"

// LineItem is one equipment/lot/quantity row under a transaction header.
// Under a pending reservation, Quantity is the remaining reserved amount; it
// only ever decreases and never goes below zero. Rows are kept at zero for
// audit rather than deleted.
type LineItem struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	TransactionID string    `gorm:"column:transaction_id;type:text;not null;index"`
	EquipmentID   string    `gorm:"column:equipment_id;type:text;not null"`
	LotID         string    `gorm:"column:lot_id;type:text;not null;index"`
	Quantity      int       `gorm:"column:quantity;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
