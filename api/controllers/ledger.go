package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/equipcare/stockroom-backend/api/middleware"
	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/api/validators"
	"github.com/equipcare/stockroom-backend/internal/ledger"
	"github.com/equipcare/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
)

type cartItemRequest struct {
	LotID    string `json:"lot_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type withdrawRequest struct {
	AssetRef *string           `json:"asset_ref,omitempty"`
	Items    []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type returnRequest struct {
	Items []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type reserveRequest struct {
	ScheduledAt time.Time         `json:"scheduled_at" validate:"required"`
	Items       []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type finalizeRequest struct {
	LotID        string  `json:"lot_id" validate:"required"`
	UsedQuantity int     `json:"used_quantity" validate:"required,gt=0"`
	AssetRef     *string `json:"asset_ref,omitempty"`
}

type returnAllRequest struct {
	LotID string `json:"lot_id" validate:"required"`
}

type lineItemResponse struct {
	ID          string `json:"id"`
	EquipmentID string `json:"equipment_id"`
	LotID       string `json:"lot_id"`
	Quantity    int    `json:"quantity"`
}

type transactionResponse struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Pending     bool               `json:"pending"`
	ActorID     string             `json:"actor_id"`
	AssetRef    *string            `json:"asset_ref,omitempty"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []lineItemResponse `json:"items"`
}

type transactionPage struct {
	Transactions []transactionResponse `json:"transactions"`
	NextCursor   string                `json:"next_cursor,omitempty"`
}

func newTransactionResponse(txn *models.StockTransaction) transactionResponse {
	out := transactionResponse{
		ID:          txn.ID,
		Kind:        string(txn.Kind),
		Pending:     txn.Pending,
		ActorID:     txn.ActorID,
		AssetRef:    txn.AssetRef,
		ScheduledAt: txn.ScheduledAt,
		CreatedAt:   txn.CreatedAt,
		Items:       make([]lineItemResponse, 0, len(txn.LineItems)),
	}
	for _, item := range txn.LineItems {
		out.Items = append(out.Items, lineItemResponse{
			ID:          item.ID,
			EquipmentID: item.EquipmentID,
			LotID:       item.LotID,
			Quantity:    item.Quantity,
		})
	}
	return out
}

func cartItems(items []cartItemRequest) []ledger.CartItem {
	out := make([]ledger.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, ledger.CartItem{LotID: item.LotID, Quantity: item.Quantity})
	}
	return out
}

func actorFromRequest(r *http.Request) (string, error) {
	actorID := middleware.ActorIDFromContext(r.Context())
	if actorID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	return actorID, nil
}

// CreateWithdrawal removes stock right away for the submitted cart.
func CreateWithdrawal(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Withdraw(r.Context(), ledger.WithdrawInput{
			ActorID:  actorID,
			AssetRef: req.AssetRef,
			Items:    cartItems(req.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// CreateReturn puts stock back for the submitted cart.
func CreateReturn(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req returnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Return(r.Context(), ledger.ReturnInput{
			ActorID: actorID,
			Items:   cartItems(req.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// CreateReservation records a borrow intent without touching stock.
func CreateReservation(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Reserve(r.Context(), ledger.ReserveInput{
			ActorID:     actorID,
			ScheduledAt: req.ScheduledAt,
			Items:       cartItems(req.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// FinalizeReservation converts part of a reservation line into confirmed usage.
func FinalizeReservation(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservationID := strings.TrimSpace(chi.URLParam(r, "reservationID"))
		if reservationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required"))
			return
		}

		var req finalizeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.FinalizeUsage(r.Context(), ledger.FinalizeInput{
			ReservationID: reservationID,
			LotID:         req.LotID,
			UsedQuantity:  req.UsedQuantity,
			AssetRef:      req.AssetRef,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// ReturnAllReserved hands the remaining reserved quantity back into stock.
func ReturnAllReserved(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservationID := strings.TrimSpace(chi.URLParam(r, "reservationID"))
		if reservationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required"))
			return
		}

		var req returnAllRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.ReturnAllReserved(r.Context(), ledger.ReturnReservedInput{
			ReservationID: reservationID,
			LotID:         req.LotID,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// ListTransactions pages through the ledger history, newest first.
func ListTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		txns, next, err := svc.ListTransactions(r.Context(), pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := transactionPage{
			Transactions: make([]transactionResponse, 0, len(txns)),
			NextCursor:   next,
		}
		for i := range txns {
			page.Transactions = append(page.Transactions, newTransactionResponse(&txns[i]))
		}
		responses.WriteSuccess(w, page)
	}
}

// GetTransaction returns a single ledger entry with its line items.
func GetTransaction(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "transactionID"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required"))
			return
		}

		txn, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionResponse(txn))
	}
}
