package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tickertronix/hub/internal/errs"
)

var knownProviders = map[string]bool{"equities": true, "forex": true}

type credentialStatus struct {
	Provider string `json:"provider"`
	Present  bool   `json:"present"`
}

// handleCredentialsStatus serves GET /credentials/status: reports which
// providers have a credential on file without ever returning the secret
// itself.
func (s *Server) handleCredentialsStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make([]credentialStatus, 0, len(knownProviders))
	for provider := range knownProviders {
		present, err := s.store.HasCredential(provider)
		if err != nil {
			writeError(w, errs.Store("failed to check credential status", err))
			return
		}
		statuses = append(statuses, credentialStatus{Provider: provider, Present: present})
	}
	writeJSON(w, http.StatusOK, statuses)
}

type putCredentialRequest struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// handlePutCredential serves PUT /credentials/{provider}: the operator-only
// write path for upstream API keys.
func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !knownProviders[provider] {
		writeError(w, errs.Validation("provider must be one of: equities, forex"))
		return
	}

	var req putCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Validation("invalid JSON body"))
		return
	}
	if req.Key == "" {
		writeError(w, errs.Validation("key is required"))
		return
	}

	if err := s.store.PutCredential(provider, req.Key, req.Secret); err != nil {
		writeError(w, errs.Store("failed to store credential", err))
		return
	}
	writeJSON(w, http.StatusOK, credentialStatus{Provider: provider, Present: true})
}
