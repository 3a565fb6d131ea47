package controllers

import (
	"net/http"
	"time"

	"github.com/equipcare/stockroom-backend/api/middleware"
	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/api/validators"
	"github.com/equipcare/stockroom-backend/internal/accesslog"
	"github.com/equipcare/stockroom-backend/pkg/db/models"
	"github.com/equipcare/stockroom-backend/pkg/enums"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	"github.com/equipcare/stockroom-backend/pkg/pagination"
)

type accessLogRequest struct {
	Action string `json:"action" validate:"required,oneof=open close"`
}

type accessLogResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccessLogResponse(entry *models.AccessLog) accessLogResponse {
	return accessLogResponse{
		ID:        entry.ID,
		ActorID:   entry.ActorID,
		Action:    string(entry.Action),
		CreatedAt: entry.CreatedAt,
	}
}

// CreateAccessLog records a manual door event for the authenticated actor.
func CreateAccessLog(svc accesslog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorIDFromContext(r.Context())
		if actorID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
			return
		}

		var req accessLogRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action, err := enums.ParseAccessAction(req.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		entry, err := svc.Record(r.Context(), actorID, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAccessLogResponse(entry))
	}
}

// ListAccessLogs returns the latest door events.
func ListAccessLogs(svc accesslog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]accessLogResponse, 0, len(entries))
		for i := range entries {
			out = append(out, newAccessLogResponse(&entries[i]))
		}
		responses.WriteSuccess(w, map[string]any{"access_logs": out})
	}
}
