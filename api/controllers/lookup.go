package controllers

import (
	"net/http"
	"strings"

	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/internal/catalog"
	"github.com/equipcare/stockroom-backend/pkg/logger"
)

// Lookup resolves a scanned code to equipment and a stocked lot.
func Lookup(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))

		result, err := svc.Lookup(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
