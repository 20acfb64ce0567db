package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/errs"
)

// handleListPrices serves GET /prices and GET /prices/{class}.
func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	var class *domain.AssetClass
	if raw := chi.URLParam(r, "class"); raw != "" {
		c := domain.AssetClass(strings.ToLower(raw))
		if !c.Valid() {
			writeError(w, errs.Validation("asset_class must be one of: stocks, forex, crypto"))
			return
		}
		class = &c
	}

	records, err := s.store.GetLatestPrices(class, nil)
	if err != nil {
		writeError(w, errs.Store("failed to list prices", err))
		return
	}
	if records == nil {
		records = []domain.PriceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetPrice serves GET /prices/{class}/{symbol}.
func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "class")
	class := domain.AssetClass(strings.ToLower(raw))
	if !class.Valid() {
		writeError(w, errs.Validation("asset_class must be one of: stocks, forex, crypto"))
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	records, err := s.store.GetLatestPrices(&class, &symbol)
	if err != nil {
		writeError(w, errs.Store("failed to get price", err))
		return
	}
	if len(records) == 0 {
		writeError(w, errs.NotFound("no price record for "+symbol))
		return
	}
	writeJSON(w, http.StatusOK, records[0])
}
