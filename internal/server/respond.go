package server

import (
	"encoding/json"
	"net/http"

	"github.com/tickertronix/hub/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps an error's errs.Kind to an HTTP status code and writes
// a structured { "error": "..." } body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindValidationFailure:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindStoreFailure:
		status = http.StatusServiceUnavailable
	case errs.KindUpstreamFailure, errs.KindUpstreamBudgetExhausted:
		status = http.StatusServiceUnavailable
	case errs.KindFatalConfig:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
