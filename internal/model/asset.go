package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssetStatus represents the operational state of an asset.
type AssetStatus string

const (
	StatusAvailable      AssetStatus = "available"
	StatusMaintenance    AssetStatus = "maintenance"
	StatusDecommissioned AssetStatus = "decommissioned"
	// StatusAssigned is derived from an active assignment and is never
	// accepted directly from a create/update payload.
	StatusAssigned AssetStatus = "assigned"
)

// AttributeMap holds the type-conditioned attributes of an asset as stored
// in the JSONB attributes column.
type AttributeMap map[string]interface{}

// Value implements driver.Valuer so AttributeMap can be written as JSONB.
func (m AttributeMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading the JSONB attributes column.
func (m *AttributeMap) Scan(src interface{}) error {
	if src == nil {
		*m = AttributeMap{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AttributeMap", src)
	}

	if len(data) == 0 {
		*m = AttributeMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Asset represents a single inventory record: a device, a peripheral, or a
// consumable accessory unit.
type Asset struct {
	ID               uuid.UUID    `json:"id"`
	AssetCode        string       `json:"asset_code"`
	AssetType        string       `json:"asset_type"`
	Brand            string       `json:"brand,omitempty"`
	Model            string       `json:"model,omitempty"`
	SerialNumber     string       `json:"serial_number,omitempty"`
	Status           AssetStatus  `json:"status"`
	BranchID         *uuid.UUID   `json:"branch_id,omitempty"`
	AssignedPersonID *uuid.UUID   `json:"assigned_person_id,omitempty"`
	PurchaseDate     *time.Time   `json:"purchase_date,omitempty"`
	DeliveryDate     *time.Time   `json:"delivery_date,omitempty"`
	ReceivedDate     *time.Time   `json:"received_date,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Attributes       AttributeMap `json:"attributes,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// IsAssigned reports whether the asset currently has an open assignment.
func (a *Asset) IsAssigned() bool {
	return a.AssignedPersonID != nil && *a.AssignedPersonID != uuid.Nil
}
