package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/notification"
	"asset-inventory-api/internal/repository"
	"asset-inventory-api/pkg/validation"
)

// Constants for timeouts and validation
const (
	DefaultTimeout      = 10 * time.Second
	LongRunningTimeout  = 15 * time.Second
	NotificationTimeout = 5 * time.Second
	// MaxAssetsThreshold triggers an alert when a person accumulates this
	// many assigned assets.
	MaxAssetsThreshold = 5
)

// Error response structure for consistent JSON error responses
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Success response structure for consistent JSON success responses
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PhoneCheckResponse is the payload of the phone uniqueness probe.
type PhoneCheckResponse struct {
	Exists  bool   `json:"exists"`
	AssetID string `json:"asset_id,omitempty"`
}

// AssetHandler handles the HTTP requests for assets.
type AssetHandler struct {
	Repo     repository.AssetRepository
	Notifier notification.Notifier
	Logger   *log.Logger

	// Helper components for cleaner code organization
	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewAssetHandler creates a new AssetHandler with dependencies and helpers
func NewAssetHandler(repo repository.AssetRepository, notifier notification.Notifier, logger *log.Logger) *AssetHandler {
	if logger == nil {
		logger = log.Default()
	}

	return &AssetHandler{
		Repo:           repo,
		Notifier:       notifier,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(),
	}
}

// CreateAssetHandler handles the creation of a new asset.
func (h *AssetHandler) CreateAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	var asset model.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.ErrorHandler.HandleJSONDecodeError(w, err)
		return
	}

	if asset.Status == "" {
		asset.Status = model.StatusAvailable
	}
	// Assignment references are owned by the assignment endpoints.
	asset.AssignedPersonID = nil

	// Validate input using validation package
	if validationErrors := validation.ValidateAssetInput(&asset); len(validationErrors) > 0 {
		errorMap := make(map[string]string)
		for i, err := range validationErrors {
			errorMap[fmt.Sprintf("error_%d", i)] = err
		}
		h.ErrorHandler.HandleValidationErrors(w, errorMap)
		return
	}

	// Duplicate phone gate for phone-carrying types
	if ok := h.rejectDuplicatePhone(w, r, &asset, uuid.Nil); !ok {
		return
	}

	// Generate ID if not provided
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}

	if err := h.Repo.CreateAsset(ctx, asset); err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "create")
		return
	}

	successData := h.ResponseHelper.CreateAssetSuccessData(asset.ID.String(), asset.AssetCode)
	h.ErrorHandler.SendSuccessResponse(w, http.StatusCreated, "Asset created successfully", successData)
}

// GetAllAssetsHandler handles the retrieval of assets with filtering and pagination.
func (h *AssetHandler) GetAllAssetsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, LongRunningTimeout)
	defer cancel()

	paginationParams := h.ResponseHelper.ParsePaginationParams(r)
	filter := h.ResponseHelper.ParseAssetFilter(r)

	result, err := h.Repo.ListAssetsPaginated(ctx, filter, repository.PaginationParams{
		Offset: paginationParams.Offset,
		Limit:  paginationParams.Limit,
	})
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "retrieve")
		return
	}

	paginationMeta := h.ResponseHelper.CalculatePaginationMeta(paginationParams, result.TotalCount)

	responseData := h.ResponseHelper.CreatePaginatedListResponseData(result.Items, paginationMeta, map[string]interface{}{
		"assets": result.Items,
	})
	delete(responseData, "items") // Remove generic "items" key since we have "assets"

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, responseData)
}

// GetAssetHandler handles the retrieval of a single asset by ID.
func (h *AssetHandler) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	id, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["id"])
	if !valid {
		return
	}

	asset, err := h.Repo.GetAssetByID(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "retrieve")
		return
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, asset)
}

// UpdateAssetHandler handles the update of an asset.
func (h *AssetHandler) UpdateAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	id, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["id"])
	if !valid {
		return
	}

	var asset model.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.ErrorHandler.HandleJSONDecodeError(w, err)
		return
	}

	if validationErrors := validation.ValidateAssetInputForUpdate(&asset); len(validationErrors) > 0 {
		errorMap := make(map[string]string)
		for i, err := range validationErrors {
			errorMap[fmt.Sprintf("error_%d", i)] = err
		}
		h.ErrorHandler.HandleValidationErrors(w, errorMap)
		return
	}

	existing, err := h.Repo.GetAssetByID(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "update")
		return
	}

	// The assigned status is derived from an open assignment; a direct
	// status change on an assigned asset is rejected, an unchanged echo of
	// the derived status passes through.
	if existing.IsAssigned() && asset.Status != existing.Status {
		h.ErrorHandler.SendErrorResponse(w, http.StatusConflict,
			"Asset has an active assignment; its status cannot be edited", "ASSET_ASSIGNED", nil)
		return
	}
	if !existing.IsAssigned() && asset.Status == model.StatusAssigned {
		h.ErrorHandler.SendErrorResponse(w, http.StatusBadRequest,
			"Status 'assigned' is derived from assignments and cannot be set directly", "INVALID_STATUS", nil)
		return
	}

	if ok := h.rejectDuplicatePhone(w, r, &asset, id); !ok {
		return
	}

	if err := h.Repo.UpdateAsset(ctx, id, asset); err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "update")
		return
	}

	successData := h.ResponseHelper.CreateAssetSuccessData(id.String(), asset.AssetCode)
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Asset updated successfully", successData)
}

// DeleteAssetHandler handles the deletion of an asset.
func (h *AssetHandler) DeleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	id, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["id"])
	if !valid {
		return
	}

	if err := h.Repo.DeleteAsset(ctx, id); err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "delete")
		return
	}

	successData := h.ResponseHelper.CreateAssetSuccessData(id.String(), "")
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Asset deleted successfully", successData)
}

// PhoneCheckHandler probes whether a phone number is already in use. The
// number is normalized before comparison, so callers may pass it raw.
func (h *AssetHandler) PhoneCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	normalized := validation.NormalizePhone(r.URL.Query().Get("number"))
	if normalized == "" {
		h.ErrorHandler.SendErrorResponse(w, http.StatusBadRequest, "Query parameter 'number' is required", "MISSING_PARAMETER", nil)
		return
	}

	excludeID := uuid.Nil
	if raw := r.URL.Query().Get("exclude_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.ErrorHandler.HandleUUIDParseError(w, err)
			return
		}
		excludeID = id
	}

	holder, err := h.Repo.PhoneNumberInUse(ctx, normalized, excludeID)
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "check phone number for")
		return
	}

	response := PhoneCheckResponse{Exists: holder != nil}
	if holder != nil {
		response.AssetID = holder.String()
	}
	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, response)
}

// GetPersonAssetsHandler handles the retrieval of all assets assigned to a person.
func (h *AssetHandler) GetPersonAssetsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	personID, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["person_id"])
	if !valid {
		return
	}

	paginationParams := h.ResponseHelper.ParsePaginationParams(r)

	result, err := h.Repo.GetAssetsByPersonPaginated(ctx, personID, repository.PaginationParams{
		Offset: paginationParams.Offset,
		Limit:  paginationParams.Limit,
	})
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "retrieve")
		return
	}

	paginationMeta := h.ResponseHelper.CalculatePaginationMeta(paginationParams, result.TotalCount)

	responseData := h.ResponseHelper.CreatePaginatedListResponseData(result.Items, paginationMeta, map[string]interface{}{
		"person_id": personID.String(),
		"assets":    result.Items,
	})
	delete(responseData, "items") // Remove generic "items" key

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, responseData)
}

// AssignAssetToPersonHandler opens an assignment of an asset to a person.
func (h *AssetHandler) AssignAssetToPersonHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	personID, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["person_id"])
	if !valid {
		return
	}
	assetID, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["asset_id"])
	if !valid {
		return
	}

	if err := h.Repo.AssignAssetToPerson(ctx, assetID, personID); err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "assign asset to person")
		return
	}

	// Async notification check (non-blocking)
	go h.checkAndNotify(personID)

	successData := h.ResponseHelper.CreateAssignmentSuccessData(assetID.String(), personID.String())
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Asset successfully assigned to person", successData)
}

// UnassignAssetFromPersonHandler closes an assignment.
func (h *AssetHandler) UnassignAssetFromPersonHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	personID, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["person_id"])
	if !valid {
		return
	}
	assetID, valid := h.ErrorHandler.ParseAndValidateUUID(w, vars["asset_id"])
	if !valid {
		return
	}

	if err := h.Repo.UnassignAssetFromPerson(ctx, assetID, personID); err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "unassign asset from person")
		return
	}

	successData := h.ResponseHelper.CreateAssignmentSuccessData(assetID.String(), personID.String())
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Asset successfully returned", successData)
}

// rejectDuplicatePhone enforces phone-number uniqueness for phone-carrying
// types before any write. Returns false after writing the error response.
func (h *AssetHandler) rejectDuplicatePhone(w http.ResponseWriter, r *http.Request, asset *model.Asset, excludeID uuid.UUID) bool {
	raw, _ := asset.Attributes["phoneNumber"].(string)
	normalized := validation.NormalizePhone(raw)
	if normalized == "" {
		return true
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	holder, err := h.Repo.PhoneNumberInUse(ctx, normalized, excludeID)
	if err != nil {
		h.ErrorHandler.HandleRepositoryError(w, err, "check phone number for")
		return false
	}
	if holder != nil {
		h.ErrorHandler.SendErrorResponse(w, http.StatusConflict,
			"Another asset already uses this phone number", "DUPLICATE_PHONE",
			map[string]string{"asset_id": holder.String()})
		return false
	}
	return true
}

// checkAndNotify performs asynchronous notification checking
func (h *AssetHandler) checkAndNotify(personID uuid.UUID) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(&http.Request{}, NotificationTimeout)
	defer cancel()

	result, err := h.Repo.GetAssetsByPersonPaginated(ctx, personID, repository.PaginationParams{Offset: 0, Limit: MaxAssetsThreshold + 1})
	if err != nil {
		h.Logger.Printf("Failed to check person assets for notification: %v", err)
		return
	}

	if result.TotalCount >= MaxAssetsThreshold {
		alert := notification.Notification{
			Level:    notification.LevelWarning,
			PersonID: personID.String(),
			Message:  fmt.Sprintf("Person %s has %d assets assigned (threshold: %d)", personID, result.TotalCount, MaxAssetsThreshold),
			Metadata: map[string]string{
				"asset_count": fmt.Sprintf("%d", result.TotalCount),
				"threshold":   fmt.Sprintf("%d", MaxAssetsThreshold),
			},
		}

		if err := h.Notifier.SendNotification(alert); err != nil {
			h.Logger.Printf("Failed to send notification for person %s: %v", personID, err)
		} else {
			h.Logger.Printf("Notification sent for person %s (%d assets)", personID, result.TotalCount)
		}
	}
}

// HealthHandler provides a health check endpoint
func (h *AssetHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := h.ResponseHelper.CreateHealthCheckData()
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Service is healthy", healthData)
}
