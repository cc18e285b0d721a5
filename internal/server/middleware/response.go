package middleware

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the JSON error envelope of the tenant API.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

// WriteError records code on the request and writes the error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	SetErrorCode(r.Context(), code)
	WriteJSON(w, status, ErrorBody{Status: "error", Error: ErrorDetail{Code: code, Message: message}})
}
