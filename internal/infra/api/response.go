package api

import (
	"encoding/json"
	"net/http"

	"telegram-prediction-backend/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto an HTTP status plus a stable machine
// code. Internal errors are masked; the code is all a client gets.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(domain.KindOf(err))
	body := errorBody{Code: domain.ReasonOf(err), Message: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindIntegrity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
