package ledger

import (
	"context"
	"errors"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/ids"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository manages persistence for transaction headers and their line items.
// Identifier assignment lives here: creates run through the collision-retry
// generator so a unique-key failure produces a fresh ID, never an overwrite.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTransaction(ctx context.Context, txn *models.StockTransaction) error
	CreateLineItem(ctx context.Context, item *models.LineItem) error

	FindTransactionByID(ctx context.Context, id string) (*models.StockTransaction, error)
	FindLineItem(ctx context.Context, transactionID, lotID string) (*models.LineItem, error)
	ListTransactions(ctx context.Context, params pagination.Params) ([]models.StockTransaction, string, error)

	// DecrementLineItem subtracts qty from the line's remaining quantity only
	// when the pre-decrement value covers it; returns rows affected.
	DecrementLineItem(ctx context.Context, transactionID, lotID string, qty int) (int64, error)
	// ZeroLineItem sets the line's quantity to zero only when it still holds
	// the expected value, guarding against a racing finalize.
	ZeroLineItem(ctx context.Context, transactionID, lotID string, expected int) (int64, error)
	CountOpenLineItems(ctx context.Context, transactionID string) (int64, error)
	MarkClosed(ctx context.Context, transactionID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.StockTransaction) error {
	id, err := ids.CreateWithRetry(r.db.WithContext(ctx), ids.PrefixTransaction, func(tx *gorm.DB, id string) error {
		txn.ID = id
		return tx.Omit("LineItems").Create(txn).Error
	})
	if err != nil {
		return err
	}
	txn.ID = id
	return nil
}

func (r *repository) CreateLineItem(ctx context.Context, item *models.LineItem) error {
	id, err := ids.CreateWithRetry(r.db.WithContext(ctx), ids.PrefixLineItem, func(tx *gorm.DB, id string) error {
		item.ID = id
		return tx.Create(item).Error
	})
	if err != nil {
		return err
	}
	item.ID = id
	return nil
}

func (r *repository) FindTransactionByID(ctx context.Context, id string) (*models.StockTransaction, error) {
	var txn models.StockTransaction
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindLineItem(ctx context.Context, transactionID, lotID string) (*models.LineItem, error) {
	var item models.LineItem
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND lot_id = ?", transactionID, lotID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListTransactions(ctx context.Context, params pagination.Params) ([]models.StockTransaction, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("LineItems").
		Order("created_at DESC, id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.StockTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(txns) == limit {
		txns = txns[:limit-1]
		last := txns[len(txns)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return txns, next, nil
}

func (r *repository) DecrementLineItem(ctx context.Context, transactionID, lotID string, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE line_items
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE transaction_id = ? AND lot_id = ? AND quantity >= ?
	`, qty, transactionID, lotID, qty)
	return res.RowsAffected, res.Error
}

func (r *repository) ZeroLineItem(ctx context.Context, transactionID, lotID string, expected int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE line_items
		SET quantity = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE transaction_id = ? AND lot_id = ? AND quantity = ?
	`, transactionID, lotID, expected)
	return res.RowsAffected, res.Error
}

func (r *repository) CountOpenLineItems(ctx context.Context, transactionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("transaction_id = ? AND quantity > 0", transactionID).
		Count(&count).Error
	return count, err
}

func (r *repository) MarkClosed(ctx context.Context, transactionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.StockTransaction{}).
		Where("id = ?", transactionID).
		Update("pending", false).Error
}
