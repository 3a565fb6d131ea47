package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a dated physical batch of one equipment definition.
// QuantityOnHand is mutated only by the ledger engine's guarded updates and
// carries a CHECK (quantity_on_hand >= 0) in the schema.
type Lot struct {
	ID             string          `gorm:"column:id;type:text;primaryKey"`
	EquipmentID    string          `gorm:"column:equipment_id;type:text;not null;index"`
	SupplierID     *string         `gorm:"column:supplier_id;type:text"`
	ImportedAt     time.Time       `gorm:"column:imported_at;not null"`
	ExpiresAt      *time.Time      `gorm:"column:expires_at"`
	QuantityOnHand int             `gorm:"column:quantity_on_hand;not null;default:0"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
