package models

import (
	"time"

	"github.com/equipcare/stockroom-backend/pkg/enums"
)

// StockTransaction is the header row for every stock-affecting event.
// Pending is true only for borrow_reserve transactions with unresolved line
// items; all other transactions are immutable once committed.
type StockTransaction struct {
	ID          string                `gorm:"column:id;type:text;primaryKey"`
	Kind        enums.TransactionKind `gorm:"column:kind;type:text;not null"`
	Pending     bool                  `gorm:"column:pending;not null;default:false"`
	ActorID     string                `gorm:"column:actor_id;type:text;not null"`
	AssetRef    *string               `gorm:"column:asset_ref"`
	ScheduledAt *time.Time            `gorm:"column:scheduled_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`

	LineItems []LineItem `gorm:"foreignKey:TransactionID;references:ID"`
}
