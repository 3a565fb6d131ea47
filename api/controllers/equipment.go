package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/api/validators"
	"github.com/equipcare/stockroom-backend/internal/catalog"
	"github.com/equipcare/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
)

type equipmentResponse struct {
	ID               string  `json:"id"`
	TypeID           string  `json:"type_id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Model            *string `json:"model,omitempty"`
	Size             *string `json:"size,omitempty"`
	Unit             string  `json:"unit"`
	ReorderThreshold int     `json:"reorder_threshold"`
}

type lotResponse struct {
	ID             string          `json:"id"`
	EquipmentID    string          `json:"equipment_id"`
	SupplierID     *string         `json:"supplier_id,omitempty"`
	ImportedAt     time.Time       `json:"imported_at"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

func newEquipmentResponse(eq *models.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:               eq.ID,
		TypeID:           eq.TypeID,
		Code:             eq.Code,
		Name:             eq.Name,
		Model:            eq.Model,
		Size:             eq.Size,
		Unit:             eq.Unit,
		ReorderThreshold: eq.ReorderThreshold,
	}
}

func newLotResponse(lot *models.Lot) lotResponse {
	return lotResponse{
		ID:             lot.ID,
		EquipmentID:    lot.EquipmentID,
		SupplierID:     lot.SupplierID,
		ImportedAt:     lot.ImportedAt,
		ExpiresAt:      lot.ExpiresAt,
		QuantityOnHand: lot.QuantityOnHand,
		UnitPrice:      lot.UnitPrice,
	}
}

// ListEquipment returns the catalog ordered by code.
func ListEquipment(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListEquipment(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]equipmentResponse, 0, len(items))
		for i := range items {
			out = append(out, newEquipmentResponse(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{"equipment": out})
	}
}

// ListEquipmentLots returns every lot under one equipment definition, oldest
// import first.
func ListEquipmentLots(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID := strings.TrimSpace(chi.URLParam(r, "equipmentID"))
		if equipmentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "equipment id is required"))
			return
		}

		lots, err := svc.ListLots(r.Context(), equipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]lotResponse, 0, len(lots))
		for i := range lots {
			out = append(out, newLotResponse(&lots[i]))
		}
		responses.WriteSuccess(w, map[string]any{"lots": out})
	}
}
