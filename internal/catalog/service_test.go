package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
)

type fakeRepo struct {
	equipment map[string]*models.Equipment
	byCode    map[string]*models.Equipment
	lots      map[string]*models.Lot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		equipment: map[string]*models.Equipment{},
		byCode:    map[string]*models.Equipment{},
		lots:      map[string]*models.Lot{},
	}
}

func (f *fakeRepo) addEquipment(eq *models.Equipment) {
	f.equipment[eq.ID] = eq
	f.byCode[eq.Code] = eq
}

func (f *fakeRepo) addLot(lot *models.Lot) {
	f.lots[lot.ID] = lot
}

func (f *fakeRepo) FindEquipmentByID(_ context.Context, id string) (*models.Equipment, error) {
	return f.equipment[id], nil
}

func (f *fakeRepo) FindEquipmentByCode(_ context.Context, code string) (*models.Equipment, error) {
	return f.byCode[code], nil
}

func (f *fakeRepo) FindLotByID(_ context.Context, id string) (*models.Lot, error) {
	return f.lots[id], nil
}

func (f *fakeRepo) ListEquipment(_ context.Context, _ int) ([]models.Equipment, error) {
	var out []models.Equipment
	for _, eq := range f.equipment {
		out = append(out, *eq)
	}
	return out, nil
}

func (f *fakeRepo) ListLots(_ context.Context, equipmentID string) ([]models.Lot, error) {
	var out []models.Lot
	for _, lot := range f.lots {
		if lot.EquipmentID == equipmentID {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (f *fakeRepo) FirstAvailableLot(_ context.Context, equipmentID string) (*models.Lot, error) {
	var best *models.Lot
	for _, lot := range f.lots {
		if lot.EquipmentID != equipmentID || lot.QuantityOnHand <= 0 {
			continue
		}
		if best == nil || lot.ImportedAt.Before(best.ImportedAt) {
			best = lot
		}
	}
	return best, nil
}

func (f *fakeRepo) CreateLot(_ context.Context, lot *models.Lot) error {
	f.lots[lot.ID] = lot
	return nil
}

func newFixture(t *testing.T) (Service, *fakeRepo) {
	t.Helper()

	repo := newFakeRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo
}

func TestLookupByLotID(t *testing.T) {
	svc, repo := newFixture(t)
	repo.addEquipment(&models.Equipment{ID: "EQP1", Code: "FLT-100", Name: "hepa filter", Unit: "pcs"})
	repo.addLot(&models.Lot{ID: "LOT1", EquipmentID: "EQP1", QuantityOnHand: 7})

	got, err := svc.Lookup(context.Background(), "LOT1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.LotID != "LOT1" || got.EquipmentID != "EQP1" || got.QuantityOnHand != 7 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Name != "hepa filter" || got.Unit != "pcs" {
		t.Fatalf("equipment fields missing: %+v", got)
	}
}

func TestLookupByEquipmentCodePicksOldestStockedLot(t *testing.T) {
	svc, repo := newFixture(t)
	repo.addEquipment(&models.Equipment{ID: "EQP1", Code: "FLT-100", Name: "hepa filter", Unit: "pcs"})
	repo.addLot(&models.Lot{
		ID: "LOT-old", EquipmentID: "EQP1", QuantityOnHand: 0,
		ImportedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	repo.addLot(&models.Lot{
		ID: "LOT-mid", EquipmentID: "EQP1", QuantityOnHand: 3,
		ImportedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	repo.addLot(&models.Lot{
		ID: "LOT-new", EquipmentID: "EQP1", QuantityOnHand: 9,
		ImportedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	got, err := svc.Lookup(context.Background(), "FLT-100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.LotID != "LOT-mid" || got.QuantityOnHand != 3 {
		t.Fatalf("expected oldest stocked lot, got %+v", got)
	}
}

func TestLookupEquipmentWithoutStock(t *testing.T) {
	svc, repo := newFixture(t)
	repo.addEquipment(&models.Equipment{ID: "EQP1", Code: "FLT-100", Name: "hepa filter", Unit: "pcs"})

	got, err := svc.Lookup(context.Background(), "FLT-100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.LotID != "" || got.QuantityOnHand != 0 {
		t.Fatalf("expected empty lot for unstocked equipment, got %+v", got)
	}
}

func TestLookupMiss(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Lookup(context.Background(), "nope")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	_, err = svc.Lookup(context.Background(), "   ")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestListLotsUnknownEquipment(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.ListLots(context.Background(), "EQP-missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
