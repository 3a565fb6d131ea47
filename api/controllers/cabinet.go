package controllers

import (
	"net/http"

	"github.com/equipcare/stockroom-backend/api/middleware"
	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/api/validators"
	"github.com/equipcare/stockroom-backend/internal/accesslog"
	"github.com/equipcare/stockroom-backend/internal/doorlock"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/logger"
)

type cabinetRequest struct {
	CabinetID string `json:"cabinet_id" validate:"required"`
}

// OpenCabinet drives the physical lock open and records the access event.
// The lock call happens outside any ledger transaction: a device failure
// surfaces as DEPENDENCY_ERROR and leaves stock untouched.
func OpenCabinet(lock doorlock.Client, logs accesslog.Service, logg *logger.Logger) http.HandlerFunc {
	return cabinetAction(lock, logs, logg, enums.AccessActionOpen)
}

// CloseCabinet drives the physical lock closed and records the access event.
func CloseCabinet(lock doorlock.Client, logs accesslog.Service, logg *logger.Logger) http.HandlerFunc {
	return cabinetAction(lock, logs, logg, enums.AccessActionClose)
}

func cabinetAction(lock doorlock.Client, logs accesslog.Service, logg *logger.Logger, action enums.AccessAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorIDFromContext(r.Context())
		if actorID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
			return
		}

		var req cabinetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if lock != nil {
			var err error
			switch action {
			case enums.AccessActionOpen:
				err = lock.Open(r.Context(), req.CabinetID)
			default:
				err = lock.Close(r.Context(), req.CabinetID)
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		entry, err := logs.Record(r.Context(), actorID, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAccessLogResponse(entry))
	}
}
