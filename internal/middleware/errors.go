// Package middleware provides the HTTP middleware chain for the API.
package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody matches the handler error shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}
