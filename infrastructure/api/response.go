package api

import (
	"chatchat/errors"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("Error writing response body", "error", err)
	}
}

// WriteError maps err to its status and writes {"error", "code"}.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, errors.HTTPStatus(err), ErrorBody{Error: errors.PublicMessage(err), Code: errors.Code(err)})
}
