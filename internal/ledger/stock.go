package ledger

import (
	"context"
	"errors"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"gorm.io/gorm"
)

// decrementLotIfAvailable takes qty out of a lot's physical stock with a
// single conditional update. The quantity_on_hand >= qty predicate is the
// non-negativity guarantee: two racing withdrawals both pass validation, but
// only updates whose pre-image covers the decrement affect a row.
func decrementLotIfAvailable(ctx context.Context, tx *gorm.DB, lotID string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE lots
		SET quantity_on_hand = quantity_on_hand - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity_on_hand >= ?
	`, qty, lotID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement lot stock")
	}
	if res.RowsAffected == 0 {
		lot, err := loadLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for lot "+lotID).
			WithDetails(map[string]any{
				"lot_id":           lotID,
				"requested":        qty,
				"quantity_on_hand": lot.QuantityOnHand,
			})
	}
	return nil
}

// incrementLot adds qty back to a lot's physical stock. Returns have no upper
// bound: the on-hand total may exceed any nominal received total, which
// matches miscounted physical returns.
func incrementLot(ctx context.Context, tx *gorm.DB, lotID string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock increment")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE lots
		SET quantity_on_hand = quantity_on_hand + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, lotID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment lot stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lot not found: "+lotID)
	}
	return nil
}

func loadLot(ctx context.Context, tx *gorm.DB, lotID string) (*models.Lot, error) {
	var lot models.Lot
	err := tx.WithContext(ctx).Where("id = ?", lotID).First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lot not found: "+lotID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
	}
	return &lot, nil
}
