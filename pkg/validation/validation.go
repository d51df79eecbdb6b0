package validation

import (
	"fmt"
	"strings"

	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/schema"
)

// Asset code validation constants
const (
	MaxAssetCodeLength = 64
	MaxNotesLength     = 2000
)

// NormalizePhone strips everything but digits and a leading plus sign from
// a candidate phone number. Both duplicate-check paths (the direct
// uniqueness call and the full-scan fallback) must run numbers through this
// same function. Normalization is idempotent.
func NormalizePhone(number string) string {
	var b strings.Builder
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateAssetCode validates an asset code. The type-prefix convention is
// advisory only and is not checked here.
func ValidateAssetCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("asset code is required")
	}
	if len(code) > MaxAssetCodeLength {
		return fmt.Errorf("asset code cannot exceed %d characters", MaxAssetCodeLength)
	}
	return nil
}

// ValidateAssetType validates that the type tag is a recognized asset type.
func ValidateAssetType(assetType string) error {
	if assetType == "" {
		return fmt.Errorf("asset type is required")
	}
	if !schema.KnownType(assetType) {
		return fmt.Errorf("unknown asset type: %s", assetType)
	}
	return nil
}

// ValidateSettableStatus validates a status supplied by a caller. The
// assigned status is derived from an open assignment and cannot be set
// through a create or update payload.
func ValidateSettableStatus(status model.AssetStatus) error {
	switch status {
	case model.StatusAvailable, model.StatusMaintenance, model.StatusDecommissioned:
		return nil
	case model.StatusAssigned:
		return fmt.Errorf("status %q is derived from assignments and cannot be set directly", status)
	case "":
		return fmt.Errorf("status is required")
	}
	return fmt.Errorf("unknown status: %s", status)
}

// ValidateStatus validates any recognized status, including the derived
// assigned status.
func ValidateStatus(status model.AssetStatus) error {
	switch status {
	case model.StatusAvailable, model.StatusMaintenance, model.StatusDecommissioned, model.StatusAssigned:
		return nil
	case "":
		return fmt.Errorf("status is required")
	}
	return fmt.Errorf("unknown status: %s", status)
}

// ValidateAssetInput validates all fields of an asset payload for creation.
// Attribute-level validation is delegated to the schema package; the
// cleaned attribute map replaces the input one on success.
func ValidateAssetInput(asset *model.Asset) []string {
	var errors []string

	if err := ValidateAssetCode(asset.AssetCode); err != nil {
		errors = append(errors, err.Error())
	}
	if err := ValidateAssetType(asset.AssetType); err != nil {
		errors = append(errors, err.Error())
		return errors // attribute validation needs a valid type
	}
	if err := ValidateSettableStatus(asset.Status); err != nil {
		errors = append(errors, err.Error())
	}
	if len(asset.Notes) > MaxNotesLength {
		errors = append(errors, fmt.Sprintf("notes cannot exceed %d characters", MaxNotesLength))
	}

	cleaned, attrErrs := schema.CleanAttributes(asset.AssetType, asset.Attributes)
	if len(attrErrs) > 0 {
		errors = append(errors, attrErrs...)
	} else {
		asset.Attributes = cleaned
	}

	return errors
}

// ValidateAssetInputForUpdate validates fields for updating an asset. It
// accepts the derived assigned status, since an edited asset with an open
// assignment echoes it back unchanged; the transition rules are enforced
// against the stored record by the API.
func ValidateAssetInputForUpdate(asset *model.Asset) []string {
	var errors []string

	if err := ValidateAssetCode(asset.AssetCode); err != nil {
		errors = append(errors, err.Error())
	}
	if err := ValidateAssetType(asset.AssetType); err != nil {
		errors = append(errors, err.Error())
		return errors
	}
	if err := ValidateStatus(asset.Status); err != nil {
		errors = append(errors, err.Error())
	}
	if len(asset.Notes) > MaxNotesLength {
		errors = append(errors, fmt.Sprintf("notes cannot exceed %d characters", MaxNotesLength))
	}

	cleaned, attrErrs := schema.CleanAttributes(asset.AssetType, asset.Attributes)
	if len(attrErrs) > 0 {
		errors = append(errors, attrErrs...)
	} else {
		asset.Attributes = cleaned
	}

	return errors
}
