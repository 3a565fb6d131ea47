package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	"github.com/equipcare/stockroom-backend/pkg/ids"
)

func seedReservationLine(t *testing.T, repo Repository, lotID string, qty int) (*models.StockTransaction, *models.LineItem) {
	t.Helper()
	ctx := context.Background()

	txn := &models.StockTransaction{
		Kind:    enums.TransactionKindBorrowReserve,
		Pending: true,
		ActorID: "tech-repo",
	}
	require.NoError(t, repo.CreateTransaction(ctx, txn))

	line := &models.LineItem{
		TransactionID: txn.ID,
		EquipmentID:   ids.New(ids.PrefixEquipment),
		LotID:         lotID,
		Quantity:      qty,
	}
	require.NoError(t, repo.CreateLineItem(ctx, line))
	return txn, line
}

func TestCreateTransactionAssignsPrefixedID(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)

	txn := &models.StockTransaction{
		Kind:    enums.TransactionKindWithdraw,
		ActorID: "tech-repo",
	}
	require.NoError(t, repo.CreateTransaction(context.Background(), txn))
	assert.True(t, strings.HasPrefix(txn.ID, ids.PrefixTransaction), "id %q", txn.ID)

	loaded, err := repo.FindTransactionByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, enums.TransactionKindWithdraw, loaded.Kind)
}

func TestFindTransactionPreloadsLineItems(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	lotID := seedLot(t, gdb, 10)

	txn, line := seedReservationLine(t, repo, lotID, 5)

	loaded, err := repo.FindTransactionByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.LineItems, 1)
	assert.Equal(t, line.ID, loaded.LineItems[0].ID)
	assert.Equal(t, 5, loaded.LineItems[0].Quantity)
}

func TestFindTransactionMissingReturnsNil(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	loaded, err := repo.FindTransactionByID(context.Background(), "TXN20260101000000-0000")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDecrementLineItemGuard(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	lotID := seedLot(t, gdb, 10)
	txn, _ := seedReservationLine(t, repo, lotID, 5)
	ctx := context.Background()

	rows, err := repo.DecrementLineItem(ctx, txn.ID, lotID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// remaining is 2, a request for 3 must not apply
	rows, err = repo.DecrementLineItem(ctx, txn.ID, lotID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	line, err := repo.FindLineItem(ctx, txn.ID, lotID)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 2, line.Quantity)
}

func TestZeroLineItemExpectedValueGuard(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	lotID := seedLot(t, gdb, 10)
	txn, _ := seedReservationLine(t, repo, lotID, 5)
	ctx := context.Background()

	rows, err := repo.ZeroLineItem(ctx, txn.ID, lotID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "stale expected value must not zero the line")

	rows, err = repo.ZeroLineItem(ctx, txn.ID, lotID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	line, err := repo.FindLineItem(ctx, txn.ID, lotID)
	require.NoError(t, err)
	assert.Equal(t, 0, line.Quantity)
}

func TestCountOpenLineItemsAndMarkClosed(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	lotA := seedLot(t, gdb, 10)
	lotB := seedLot(t, gdb, 10)
	ctx := context.Background()

	txn, _ := seedReservationLine(t, repo, lotA, 2)
	lineB := &models.LineItem{
		TransactionID: txn.ID,
		EquipmentID:   ids.New(ids.PrefixEquipment),
		LotID:         lotB,
		Quantity:      3,
	}
	require.NoError(t, repo.CreateLineItem(ctx, lineB))

	open, err := repo.CountOpenLineItems(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), open)

	_, err = repo.ZeroLineItem(ctx, txn.ID, lotA, 2)
	require.NoError(t, err)

	open, err = repo.CountOpenLineItems(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)

	require.NoError(t, repo.MarkClosed(ctx, txn.ID))
	loaded, err := repo.FindTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Pending)
}
