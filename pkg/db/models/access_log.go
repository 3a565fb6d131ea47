package models

import (
	"time"

	"github.com/equipcare/stockroom-backend/pkg/enums"
)

// AccessLog records a physical door open/close event. Append-only.
type AccessLog struct {
	ID        string             `gorm:"column:id;type:text;primaryKey"`
	ActorID   string             `gorm:"column:actor_id;type:text;not null"`
	Action    enums.AccessAction `gorm:"column:action;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
