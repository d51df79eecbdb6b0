package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/schema"
	"asset-inventory-api/pkg/validation"
)

// Custom errors for better error handling
var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrDuplicateAssetCode = errors.New("asset with this code already exists")
	ErrAssetNotAssignable = errors.New("asset not found or not assignable")
	ErrNotAssignedToThem  = errors.New("asset not found or not assigned to this person")
)

// PaginationParams holds pagination parameters for repository queries
type PaginationParams struct {
	Offset int
	Limit  int
}

// PaginatedResult holds paginated query results
type PaginatedResult struct {
	Items      []model.Asset
	TotalCount int
}

// AssetFilter narrows asset listings. Zero values mean no constraint.
type AssetFilter struct {
	AssetType  string
	Status     model.AssetStatus
	Unassigned bool
}

// AssetRepository is an interface for interacting with asset data.
type AssetRepository interface {
	CreateAsset(ctx context.Context, asset model.Asset) error
	GetAssetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	GetAssetByCode(ctx context.Context, assetCode string) (*model.Asset, error)
	ListAssetsPaginated(ctx context.Context, filter AssetFilter, params PaginationParams) (*PaginatedResult, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, asset model.Asset) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	AssetCodeExists(ctx context.Context, assetCode string) (bool, error)
	PhoneNumberInUse(ctx context.Context, normalizedNumber string, excludeID uuid.UUID) (*uuid.UUID, error)
	GetAssetsByPersonPaginated(ctx context.Context, personID uuid.UUID, params PaginationParams) (*PaginatedResult, error)
	AssignAssetToPerson(ctx context.Context, assetID, personID uuid.UUID) error
	UnassignAssetFromPerson(ctx context.Context, assetID, personID uuid.UUID) error
}

// assetRepository is the concrete implementation of the AssetRepository interface.

type assetRepository struct {
	DB *sql.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *sql.DB) AssetRepository {
	return &assetRepository{DB: db}
}

const assetColumns = `id, asset_code, asset_type, brand, model, serial_number, status, branch_id, assigned_person_id, purchase_date, delivery_date, received_date, notes, attributes, created_at, updated_at`

func scanAsset(row interface{ Scan(...interface{}) error }) (*model.Asset, error) {
	var a model.Asset
	err := row.Scan(
		&a.ID, &a.AssetCode, &a.AssetType, &a.Brand, &a.Model, &a.SerialNumber,
		&a.Status, &a.BranchID, &a.AssignedPersonID,
		&a.PurchaseDate, &a.DeliveryDate, &a.ReceivedDate,
		&a.Notes, &a.Attributes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAsset adds a new asset to the database.
func (r *assetRepository) CreateAsset(ctx context.Context, asset model.Asset) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO assets (id, asset_code, asset_type, brand, model, serial_number, status, branch_id, purchase_date, received_date, notes, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.DB.ExecContext(ctx, query,
		asset.ID,
		asset.AssetCode,
		asset.AssetType,
		asset.Brand,
		asset.Model,
		asset.SerialNumber,
		asset.Status,
		asset.BranchID,
		asset.PurchaseDate,
		asset.ReceivedDate,
		asset.Notes,
		asset.Attributes,
	)

	if err != nil {
		// Check for unique constraint violations (PostgreSQL error code 23505)
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			if strings.Contains(err.Error(), "assets_asset_code_key") || strings.Contains(err.Error(), "assets_pkey") {
				return fmt.Errorf("%w: %s", ErrDuplicateAssetCode, asset.AssetCode)
			}
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetAssetByID retrieves a single asset by its ID.
func (r *assetRepository) GetAssetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset, err := scanAsset(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset by ID: %w", err)
	}
	return asset, nil
}

// GetAssetByCode retrieves an asset by its inventory code.
func (r *assetRepository) GetAssetByCode(ctx context.Context, assetCode string) (*model.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_code = $1`

	asset, err := scanAsset(r.DB.QueryRowContext(ctx, query, assetCode))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset by code: %w", err)
	}
	return asset, nil
}

// buildFilter renders the WHERE clause for an asset filter, starting
// placeholder numbering at $1.
func buildFilter(filter AssetFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.AssetType != "" {
		args = append(args, filter.AssetType)
		conditions = append(conditions, fmt.Sprintf("asset_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Unassigned {
		conditions = append(conditions, "assigned_person_id IS NULL")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListAssetsPaginated retrieves assets matching the filter with pagination support.
func (r *assetRepository) ListAssetsPaginated(ctx context.Context, filter AssetFilter, params PaginationParams) (*PaginatedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	where, args := buildFilter(filter)
	query := fmt.Sprintf(`SELECT `+assetColumns+` FROM assets%s ORDER BY asset_code OFFSET $%d LIMIT $%d`,
		where, len(args)+1, len(args)+2)

	rows, err := r.DB.QueryContext(ctx, query, append(args, params.Offset, params.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Get total count of matching assets for pagination
	var totalCount int
	countQuery := `SELECT COUNT(*) FROM assets` + where
	err = r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count of assets: %w", err)
	}

	return &PaginatedResult{
		Items:      assets,
		TotalCount: totalCount,
	}, nil
}

// AssetCodeExists checks if an asset with the given code already exists
func (r *assetRepository) AssetCodeExists(ctx context.Context, assetCode string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `SELECT EXISTS(SELECT 1 FROM assets WHERE asset_code = $1)`

	var exists bool
	err := r.DB.QueryRowContext(ctx, query, assetCode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check asset existence: %w", err)
	}

	return exists, nil
}

// PhoneNumberInUse reports the id of an asset, other than excludeID, whose
// stored phone number normalizes to the given number. Normalization happens
// in Go so this check and the editor's fallback scan share one function.
func (r *assetRepository) PhoneNumberInUse(ctx context.Context, normalizedNumber string, excludeID uuid.UUID) (*uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT id, COALESCE(attributes->>'phoneNumber', '')
		FROM assets
		WHERE asset_type = ANY($1) AND id <> $2`

	rows, err := r.DB.QueryContext(ctx, query, phoneTypeArray(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var number string
		if err := rows.Scan(&id, &number); err != nil {
			return nil, fmt.Errorf("failed to scan phone number row: %w", err)
		}
		if number != "" && validation.NormalizePhone(number) == normalizedNumber {
			return &id, nil
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return nil, nil
}

// UpdateAsset updates an asset in the database. Assignment fields are owned
// by the assignment operations and are not touched here.
func (r *assetRepository) UpdateAsset(ctx context.Context, id uuid.UUID, asset model.Asset) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE assets
		SET asset_code = $1, asset_type = $2, brand = $3, model = $4, serial_number = $5, status = $6, branch_id = $7, purchase_date = $8, received_date = $9, notes = $10, attributes = $11, updated_at = CURRENT_TIMESTAMP
		WHERE id = $12`

	result, err := r.DB.ExecContext(ctx, query,
		asset.AssetCode,
		asset.AssetType,
		asset.Brand,
		asset.Model,
		asset.SerialNumber,
		asset.Status,
		asset.BranchID,
		asset.PurchaseDate,
		asset.ReceivedDate,
		asset.Notes,
		asset.Attributes,
		id,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("%w: %s", ErrDuplicateAssetCode, asset.AssetCode)
		}
		return fmt.Errorf("failed to update asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAssetNotFound
	}

	return nil
}

// DeleteAsset deletes an asset from the database.
func (r *assetRepository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `DELETE FROM assets WHERE id = $1`

	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAssetNotFound
	}

	return nil
}

// GetAssetsByPersonPaginated retrieves all assets assigned to a person with pagination support.
func (r *assetRepository) GetAssetsByPersonPaginated(ctx context.Context, personID uuid.UUID, params PaginationParams) (*PaginatedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `SELECT ` + assetColumns + ` FROM assets WHERE assigned_person_id = $1 ORDER BY asset_code OFFSET $2 LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, personID, params.Offset, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets by person: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	var totalCount int
	countQuery := `SELECT COUNT(*) FROM assets WHERE assigned_person_id = $1`
	err = r.DB.QueryRowContext(ctx, countQuery, personID).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count of assets: %w", err)
	}

	return &PaginatedResult{
		Items:      assets,
		TotalCount: totalCount,
	}, nil
}

// AssignAssetToPerson opens an assignment: the person reference is set, the
// status flips to assigned and the delivery date is stamped. Decommissioned
// assets cannot be assigned.
func (r *assetRepository) AssignAssetToPerson(ctx context.Context, assetID, personID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE assets
		SET assigned_person_id = $1, status = 'assigned', delivery_date = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status <> 'decommissioned'`

	result, err := r.DB.ExecContext(ctx, query, personID, assetID)
	if err != nil {
		return fmt.Errorf("failed to assign asset to person: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAssetNotAssignable, assetID)
	}

	return nil
}

// UnassignAssetFromPerson closes an assignment after verifying the asset is
// currently assigned to the given person. The status returns to available.
func (r *assetRepository) UnassignAssetFromPerson(ctx context.Context, assetID, personID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE assets
		SET assigned_person_id = NULL, status = 'available', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND assigned_person_id = $2`

	result, err := r.DB.ExecContext(ctx, query, assetID, personID)
	if err != nil {
		return fmt.Errorf("failed to unassign asset from person: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotAssignedToThem, assetID)
	}

	return nil
}

// phoneTypeArray renders the phone-carrying asset types for ANY($1).
func phoneTypeArray() interface{} {
	var types []string
	for _, t := range schema.AllTypes() {
		if schema.IsPhoneType(t) {
			types = append(types, t)
		}
	}
	return pq.Array(types)
}
