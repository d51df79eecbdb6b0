package router

import (
	"github.com/gorilla/mux"

	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/handler"
	"asset-inventory-api/internal/middleware"
)

// NewRouter creates a new router and sets up the routes with security middleware.
func NewRouter(h handler.AssetHandlerInterface, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()

	// Initialize security middleware
	securityMW := middleware.NewSecurityMiddleware(&cfg.Security)

	// Apply global middleware in order
	r.Use(securityMW.SecurityHeaders)
	r.Use(securityMW.CORS)
	r.Use(securityMW.TrustedProxy)
	r.Use(securityMW.RateLimit)
	r.Use(securityMW.RequestTimeout)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Phone uniqueness probe (registered before the {id} route)
	api.HandleFunc("/assets/phone-check", h.PhoneCheckHandler).Methods("GET")

	// Editor tuning parameters
	api.HandleFunc("/editor/config", handler.EditorConfigHandler(cfg.Editor)).Methods("GET")

	// Asset CRUD operations
	api.HandleFunc("/assets", h.CreateAssetHandler).Methods("POST")
	api.HandleFunc("/assets", h.GetAllAssetsHandler).Methods("GET")
	api.HandleFunc("/assets/{id}", h.GetAssetHandler).Methods("GET")
	api.HandleFunc("/assets/{id}", h.UpdateAssetHandler).Methods("PUT")
	api.HandleFunc("/assets/{id}", h.DeleteAssetHandler).Methods("DELETE")

	// Person assignment operations
	api.HandleFunc("/persons/{person_id}/assets", h.GetPersonAssetsHandler).Methods("GET")
	api.HandleFunc("/persons/{person_id}/assets/{asset_id}", h.AssignAssetToPersonHandler).Methods("PUT")
	api.HandleFunc("/persons/{person_id}/assets/{asset_id}", h.UnassignAssetFromPersonHandler).Methods("DELETE")

	// Health check
	api.HandleFunc("/health", h.HealthHandler).Methods("GET")

	return r
}
