package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/errs"
)

// handleListAssets serves GET /assets, optionally filtered by ?class=.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	var class *domain.AssetClass
	if raw := r.URL.Query().Get("class"); raw != "" {
		c := domain.AssetClass(strings.ToLower(raw))
		if !c.Valid() {
			writeError(w, errs.Validation("class must be one of: stocks, forex, crypto"))
			return
		}
		class = &c
	}

	assets, err := s.store.ListAssets(class, true)
	if err != nil {
		writeError(w, errs.Store("failed to list assets", err))
		return
	}
	if assets == nil {
		assets = []domain.SelectedAsset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

type addAssetRequest struct {
	Symbol     string `json:"symbol"`
	AssetClass string `json:"asset_class"`
}

// handleAddAsset serves POST /assets.
func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	var req addAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid JSON body"))
		return
	}
	if req.Symbol == "" {
		writeError(w, errs.Validation("symbol is required"))
		return
	}
	class := domain.AssetClass(strings.ToLower(req.AssetClass))
	if !class.Valid() {
		writeError(w, errs.Validation("asset_class must be one of: stocks, forex, crypto"))
		return
	}

	symbol := strings.ToUpper(req.Symbol)
	if err := s.store.AddAsset(symbol, class); err != nil {
		writeError(w, errs.Store("failed to add asset", err))
		return
	}
	writeJSON(w, http.StatusOK, domain.SelectedAsset{Symbol: symbol, AssetClass: class, Enabled: true})
}

// handleRemoveAsset serves DELETE /assets/{class}/{symbol}.
func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	class := domain.AssetClass(strings.ToLower(chi.URLParam(r, "class")))
	if !class.Valid() {
		writeError(w, errs.Validation("class must be one of: stocks, forex, crypto"))
		return
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	if err := s.store.RemoveAsset(symbol, class); err != nil {
		writeError(w, errs.Store("failed to remove asset", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
