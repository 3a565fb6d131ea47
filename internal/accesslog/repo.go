package accesslog

import (
	"context"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/ids"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists door events. The table is append-only; there is no
// update or delete path.
type Repository interface {
	Create(ctx context.Context, entry *models.AccessLog) error
	List(ctx context.Context, limit int) ([]models.AccessLog, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.AccessLog) error {
	id, err := ids.CreateWithRetry(r.db.WithContext(ctx), ids.PrefixAccessLog, func(tx *gorm.DB, id string) error {
		entry.ID = id
		return tx.Create(entry).Error
	})
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *repository) List(ctx context.Context, limit int) ([]models.AccessLog, error) {
	var entries []models.AccessLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&entries).Error
	return entries, err
}
