package handler

import (
	"net/http"
)

// AssetHandlerInterface defines the contract for asset HTTP handlers.
// This interface enables easy testing, mocking, and dependency injection.
type AssetHandlerInterface interface {
	// Asset CRUD operations
	CreateAssetHandler(w http.ResponseWriter, r *http.Request)
	GetAllAssetsHandler(w http.ResponseWriter, r *http.Request)
	GetAssetHandler(w http.ResponseWriter, r *http.Request)
	UpdateAssetHandler(w http.ResponseWriter, r *http.Request)
	DeleteAssetHandler(w http.ResponseWriter, r *http.Request)

	// Uniqueness probe used by the asset editor
	PhoneCheckHandler(w http.ResponseWriter, r *http.Request)

	// Person assignment operations
	GetPersonAssetsHandler(w http.ResponseWriter, r *http.Request)
	AssignAssetToPersonHandler(w http.ResponseWriter, r *http.Request)
	UnassignAssetFromPersonHandler(w http.ResponseWriter, r *http.Request)

	// Health and monitoring
	HealthHandler(w http.ResponseWriter, r *http.Request)
}

// Ensure AssetHandler implements AssetHandlerInterface at compile time
var _ AssetHandlerInterface = (*AssetHandler)(nil)
