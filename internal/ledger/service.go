package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/metrics"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the only operations that mutate lot stock. Each operation
// is one database transaction: a failure at any step rolls back every prior
// statement, so the ledger is never partially applied.
type Service interface {
	Withdraw(ctx context.Context, input WithdrawInput) (*models.StockTransaction, error)
	Return(ctx context.Context, input ReturnInput) (*models.StockTransaction, error)
	Reserve(ctx context.Context, input ReserveInput) (*models.StockTransaction, error)
	FinalizeUsage(ctx context.Context, input FinalizeInput) (*models.StockTransaction, error)
	ReturnAllReserved(ctx context.Context, input ReturnReservedInput) (*models.StockTransaction, error)

	GetTransaction(ctx context.Context, id string) (*models.StockTransaction, error)
	ListTransactions(ctx context.Context, params pagination.Params) ([]models.StockTransaction, string, error)
}

// CartItem is one lot/quantity pair submitted by the client cart.
type CartItem struct {
	LotID    string `json:"lot_id"`
	Quantity int    `json:"quantity"`
}

type WithdrawInput struct {
	ActorID  string
	AssetRef *string
	Items    []CartItem
}

type ReturnInput struct {
	ActorID string
	Items   []CartItem
}

type ReserveInput struct {
	ActorID     string
	ScheduledAt time.Time
	Items       []CartItem
}

type FinalizeInput struct {
	ReservationID string
	LotID         string
	UsedQuantity  int
	AssetRef      *string
	ActorID       string
}

type ReturnReservedInput struct {
	ReservationID string
	LotID         string
	ActorID       string
}

type service struct {
	tx      txRunner
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// NewService wires the ledger engine with its transaction runner and repository.
func NewService(tx txRunner, repo Repository, m *metrics.LedgerMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{tx: tx, repo: repo, metrics: m}, nil
}

// Withdraw removes stock immediately. Decrements are conditional updates
// checked by affected-row count, so concurrent withdrawals against the same
// lot cannot drive quantity_on_hand below zero.
func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.StockTransaction, error) {
	if err := validateCart(input.ActorID, input.Items); err != nil {
		return nil, err
	}

	var result *models.StockTransaction
	err := s.instrument(ctx, "withdraw", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			txn := &models.StockTransaction{
				Kind:     enums.TransactionKindWithdraw,
				Pending:  false,
				ActorID:  input.ActorID,
				AssetRef: input.AssetRef,
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdraw transaction")
			}

			for _, item := range input.Items {
				lot, err := loadLot(ctx, tx, item.LotID)
				if err != nil {
					return err
				}
				if err := decrementLotIfAvailable(ctx, tx, item.LotID, item.Quantity); err != nil {
					return err
				}
				line := &models.LineItem{
					TransactionID: txn.ID,
					EquipmentID:   lot.EquipmentID,
					LotID:         item.LotID,
					Quantity:      item.Quantity,
				}
				if err := repo.CreateLineItem(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdraw line item")
				}
				txn.LineItems = append(txn.LineItems, *line)
			}

			result = txn
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Return puts stock back. There is no upper-bound check on the increment; the
// only failures are infrastructure-level.
func (s *service) Return(ctx context.Context, input ReturnInput) (*models.StockTransaction, error) {
	if err := validateCart(input.ActorID, input.Items); err != nil {
		return nil, err
	}

	var result *models.StockTransaction
	err := s.instrument(ctx, "return", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			txn := &models.StockTransaction{
				Kind:    enums.TransactionKindReturn,
				Pending: false,
				ActorID: input.ActorID,
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return transaction")
			}

			for _, item := range input.Items {
				lot, err := loadLot(ctx, tx, item.LotID)
				if err != nil {
					return err
				}
				if err := incrementLot(ctx, tx, item.LotID, item.Quantity); err != nil {
					return err
				}
				line := &models.LineItem{
					TransactionID: txn.ID,
					EquipmentID:   lot.EquipmentID,
					LotID:         item.LotID,
					Quantity:      item.Quantity,
				}
				if err := repo.CreateLineItem(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return line item")
				}
				txn.LineItems = append(txn.LineItems, *line)
			}

			result = txn
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reserve earmarks quantity for later confirmed use. It is an intent record:
// lot stock is not touched until FinalizeUsage or ReturnAllReserved settles
// each line.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.StockTransaction, error) {
	if err := validateCart(input.ActorID, input.Items); err != nil {
		return nil, err
	}
	if input.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date is required")
	}

	var result *models.StockTransaction
	err := s.instrument(ctx, "reserve", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			scheduled := input.ScheduledAt
			txn := &models.StockTransaction{
				Kind:        enums.TransactionKindBorrowReserve,
				Pending:     true,
				ActorID:     input.ActorID,
				ScheduledAt: &scheduled,
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
			}

			for _, item := range input.Items {
				lot, err := loadLot(ctx, tx, item.LotID)
				if err != nil {
					return err
				}
				line := &models.LineItem{
					TransactionID: txn.ID,
					EquipmentID:   lot.EquipmentID,
					LotID:         item.LotID,
					Quantity:      item.Quantity,
				}
				if err := repo.CreateLineItem(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation line item")
				}
				txn.LineItems = append(txn.LineItems, *line)
			}

			result = txn
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FinalizeUsage converts part of a reservation into a permanent withdraw
// record. The reservation line's remaining quantity is decremented with the
// same conditional-update guard as lot stock; lot stock itself is not touched
// because Reserve never removed it.
func (s *service) FinalizeUsage(ctx context.Context, input FinalizeInput) (*models.StockTransaction, error) {
	if input.ActorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.UsedQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "used quantity must be positive")
	}

	var result *models.StockTransaction
	err := s.instrument(ctx, "finalize_usage", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			line, err := s.openReservationLine(ctx, repo, input.ReservationID, input.LotID)
			if err != nil {
				return err
			}

			rows, err := repo.DecrementLineItem(ctx, input.ReservationID, input.LotID, input.UsedQuantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement reservation line")
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeOverconsumption, "used quantity exceeds reserved remainder").
					WithDetails(map[string]any{
						"reservation_id": input.ReservationID,
						"lot_id":         input.LotID,
						"requested":      input.UsedQuantity,
						"remaining":      line.Quantity,
					})
			}

			usage := &models.StockTransaction{
				Kind:     enums.TransactionKindWithdraw,
				Pending:  false,
				ActorID:  input.ActorID,
				AssetRef: input.AssetRef,
			}
			if err := repo.CreateTransaction(ctx, usage); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create usage transaction")
			}
			usageLine := &models.LineItem{
				TransactionID: usage.ID,
				EquipmentID:   line.EquipmentID,
				LotID:         input.LotID,
				Quantity:      input.UsedQuantity,
			}
			if err := repo.CreateLineItem(ctx, usageLine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create usage line item")
			}
			usage.LineItems = append(usage.LineItems, *usageLine)

			if err := s.closeIfSettled(ctx, repo, input.ReservationID); err != nil {
				return err
			}

			result = usage
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReturnAllReserved reconciles a reservation line back into stock: the
// remaining reserved quantity goes back onto the lot, a return transaction
// records it, and the line is zeroed. This is the only path that moves a
// pending reservation's quantity back into quantity_on_hand.
func (s *service) ReturnAllReserved(ctx context.Context, input ReturnReservedInput) (*models.StockTransaction, error) {
	if input.ActorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var result *models.StockTransaction
	err := s.instrument(ctx, "return_all_reserved", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			line, err := s.openReservationLine(ctx, repo, input.ReservationID, input.LotID)
			if err != nil {
				return err
			}
			remaining := line.Quantity
			if remaining <= 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation line already settled").
					WithDetails(map[string]any{
						"reservation_id": input.ReservationID,
						"lot_id":         input.LotID,
					})
			}

			rows, err := repo.ZeroLineItem(ctx, input.ReservationID, input.LotID, remaining)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "zero reservation line")
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "reservation line changed concurrently").
					WithDetails(map[string]any{
						"reservation_id": input.ReservationID,
						"lot_id":         input.LotID,
					})
			}

			if err := incrementLot(ctx, tx, input.LotID, remaining); err != nil {
				return err
			}

			ret := &models.StockTransaction{
				Kind:    enums.TransactionKindReturn,
				Pending: false,
				ActorID: input.ActorID,
			}
			if err := repo.CreateTransaction(ctx, ret); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return transaction")
			}
			retLine := &models.LineItem{
				TransactionID: ret.ID,
				EquipmentID:   line.EquipmentID,
				LotID:         input.LotID,
				Quantity:      remaining,
			}
			if err := repo.CreateLineItem(ctx, retLine); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return line item")
			}
			ret.LineItems = append(ret.LineItems, *retLine)

			if err := s.closeIfSettled(ctx, repo, input.ReservationID); err != nil {
				return err
			}

			result = ret
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetTransaction(ctx context.Context, id string) (*models.StockTransaction, error) {
	txn, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found: "+id)
	}
	return txn, nil
}

func (s *service) ListTransactions(ctx context.Context, params pagination.Params) ([]models.StockTransaction, string, error) {
	txns, next, err := s.repo.ListTransactions(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, next, nil
}

// openReservationLine loads a reservation's line item after verifying the
// header is a reservation that is still pending. CLOSED is terminal: any
// attempt against a closed reservation is rejected, never silently accepted.
func (s *service) openReservationLine(ctx context.Context, repo Repository, reservationID, lotID string) (*models.LineItem, error) {
	txn, err := repo.FindTransactionByID(ctx, reservationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found: "+reservationID)
	}
	if txn.Kind != enums.TransactionKindBorrowReserve {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not a reservation").
			WithDetails(map[string]any{"transaction_id": reservationID, "kind": txn.Kind})
	}
	if !txn.Pending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already closed").
			WithDetails(map[string]any{"reservation_id": reservationID})
	}

	line, err := repo.FindLineItem(ctx, reservationID, lotID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation has no line for lot "+lotID)
	}
	return line, nil
}

// closeIfSettled flips the reservation to non-pending once every line item
// under it has reached zero.
func (s *service) closeIfSettled(ctx context.Context, repo Repository, reservationID string) error {
	open, err := repo.CountOpenLineItems(ctx, reservationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open reservation lines")
	}
	if open > 0 {
		return nil
	}
	if err := repo.MarkClosed(ctx, reservationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close reservation")
	}
	return nil
}

func (s *service) instrument(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation)
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			s.metrics.IncInsufficientStock()
		}
		return err
	}
	s.metrics.IncSuccess(operation)
	return nil
}

func validateCart(actorID string, items []CartItem) error {
	if actorID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	for _, item := range items {
		if item.LotID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "lot id is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"lot_id": item.LotID, "quantity": item.Quantity})
		}
	}
	return nil
}
