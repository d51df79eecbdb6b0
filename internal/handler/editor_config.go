package handler

import (
	"encoding/json"
	"net/http"

	"asset-inventory-api/internal/config"
)

// EditorConfigHandler serves the asset editor its tuning parameters. Editor
// clients fetch this on startup instead of hardcoding their own defaults.
func EditorConfigHandler(cfg config.EditorConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(cfg)
	}
}
