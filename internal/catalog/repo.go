package catalog

import (
	"context"
	"errors"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/ids"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository reads the equipment catalog. Lot creation is inbound receiving,
// not a ledger operation, so it lives here rather than in the ledger engine.
type Repository interface {
	FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error)
	FindEquipmentByCode(ctx context.Context, code string) (*models.Equipment, error)
	FindLotByID(ctx context.Context, id string) (*models.Lot, error)

	ListEquipment(ctx context.Context, limit int) ([]models.Equipment, error)
	ListLots(ctx context.Context, equipmentID string) ([]models.Lot, error)
	// FirstAvailableLot returns the oldest imported lot that still holds stock.
	FirstAvailableLot(ctx context.Context, equipmentID string) (*models.Lot, error)

	CreateLot(ctx context.Context, lot *models.Lot) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEquipmentByID(ctx context.Context, id string) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&eq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &eq, nil
}

func (r *repository) FindEquipmentByCode(ctx context.Context, code string) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&eq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &eq, nil
}

func (r *repository) FindLotByID(ctx context.Context, id string) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

func (r *repository) ListEquipment(ctx context.Context, limit int) ([]models.Equipment, error) {
	var items []models.Equipment
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&items).Error
	return items, err
}

func (r *repository) ListLots(ctx context.Context, equipmentID string) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("imported_at ASC, id ASC").
		Find(&lots).Error
	return lots, err
}

func (r *repository) FirstAvailableLot(ctx context.Context, equipmentID string) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND quantity_on_hand > 0", equipmentID).
		Order("imported_at ASC, id ASC").
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

func (r *repository) CreateLot(ctx context.Context, lot *models.Lot) error {
	id, err := ids.CreateWithRetry(r.db.WithContext(ctx), ids.PrefixLot, func(tx *gorm.DB, id string) error {
		lot.ID = id
		return tx.Create(lot).Error
	})
	if err != nil {
		return err
	}
	lot.ID = id
	return nil
}
