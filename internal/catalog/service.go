package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/equipcare/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
)

// LookupResult is the scan-to-lot resolution returned to handheld clients.
// LotID is empty when an equipment code matched but no lot currently holds
// stock.
type LookupResult struct {
	EquipmentID    string `json:"equipment_id"`
	LotID          string `json:"lot_id,omitempty"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	QuantityOnHand int    `json:"quantity_on_hand"`
}

type Service interface {
	// Lookup resolves a scanned code: an exact lot ID first, then an exact
	// equipment code. Equipment matches resolve to the oldest stocked lot.
	Lookup(ctx context.Context, code string) (*LookupResult, error)

	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	ListEquipment(ctx context.Context, limit int) ([]models.Equipment, error)
	ListLots(ctx context.Context, equipmentID string) ([]models.Lot, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Lookup(ctx context.Context, code string) (*LookupResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	lot, err := s.repo.FindLotByID(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up lot")
	}
	if lot != nil {
		eq, err := s.repo.FindEquipmentByID(ctx, lot.EquipmentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment for lot")
		}
		if eq == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found for lot "+lot.ID)
		}
		return &LookupResult{
			EquipmentID:    eq.ID,
			LotID:          lot.ID,
			Name:           eq.Name,
			Unit:           eq.Unit,
			QuantityOnHand: lot.QuantityOnHand,
		}, nil
	}

	eq, err := s.repo.FindEquipmentByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up equipment code")
	}
	if eq == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no lot or equipment matches code "+code)
	}

	result := &LookupResult{
		EquipmentID: eq.ID,
		Name:        eq.Name,
		Unit:        eq.Unit,
	}
	available, err := s.repo.FirstAvailableLot(ctx, eq.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find available lot")
	}
	if available != nil {
		result.LotID = available.ID
		result.QuantityOnHand = available.QuantityOnHand
	}
	return result, nil
}

func (s *service) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	eq, err := s.repo.FindEquipmentByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}
	if eq == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found: "+id)
	}
	return eq, nil
}

func (s *service) ListEquipment(ctx context.Context, limit int) ([]models.Equipment, error) {
	items, err := s.repo.ListEquipment(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment")
	}
	return items, nil
}

func (s *service) ListLots(ctx context.Context, equipmentID string) ([]models.Lot, error) {
	if _, err := s.GetEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	lots, err := s.repo.ListLots(ctx, equipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lots")
	}
	return lots, nil
}
