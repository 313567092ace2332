package middleware

import (
	"encoding/json"
	"net/http"
)

// writeErr sends JSON { "error": message, "code": code }.
func writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
