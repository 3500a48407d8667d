package api

import (
	"encoding/json"
	"net/http"

	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
)

// errorResponse is the body of every failed call. Pricing is only set on
// pricing routes, where it holds the default structure.
type errorResponse struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Kind    string          `json:"kind,omitempty"`
	Pricing *pricing.Result `json:"pricing,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, kind string) {
	writeJSON(w, statusCode, errorResponse{Error: true, Message: message, Kind: kind})
}
