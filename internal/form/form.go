package form

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/pool"
	"asset-inventory-api/internal/schema"
	apperrors "asset-inventory-api/pkg/errors"
	"asset-inventory-api/pkg/validation"
)

// Mode distinguishes a create form from an edit form.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Sentinel errors surfaced by form operations.
var (
	ErrUnknownType          = errors.New("unknown asset type")
	ErrTypeFixed            = errors.New("asset type is fixed for this form")
	ErrUnknownCategory      = errors.New("accessory category not available for this asset type")
	ErrAccessoryNotEnabled  = errors.New("accessory is not enabled for linking")
	ErrCreationPending      = errors.New("another accessory creation is already pending")
	ErrNoCreationPending    = errors.New("no accessory creation is pending")
	ErrAccessoryUnavailable = errors.New("selected accessory is no longer available")
	ErrStatusLocked         = errors.New("status cannot be edited while the asset has an active assignment")
	ErrDuplicatePhone       = errors.New("another asset already uses this phone number")
)

// ValidationError aggregates field-level validation messages. A save that
// produces one performs no API write and leaves the form editable.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Config tunes editor behavior.
type Config struct {
	// PoolPageSize bounds each availability pool refresh fetch.
	PoolPageSize int
	// FallbackScanPageSize bounds the full-table duplicate-phone scan pages.
	FallbackScanPageSize int
	// RevalidateLinks re-checks selected accessory ids against a fresh pool
	// snapshot right before submit.
	RevalidateLinks bool
}

// DefaultConfig returns the default editor configuration.
func DefaultConfig() Config {
	return Config{
		PoolPageSize:         pool.DefaultPageSize,
		FallbackScanPageSize: 2000,
		RevalidateLinks:      true,
	}
}

// ConfigFrom builds the editor configuration from the service's Editor
// config section, as served by the editor-config endpoint. Unset sizes
// fall back to the defaults.
func ConfigFrom(e config.EditorConfig) Config {
	cfg := DefaultConfig()
	if e.PoolPageSize > 0 {
		cfg.PoolPageSize = e.PoolPageSize
	}
	if e.FallbackScanPageSize > 0 {
		cfg.FallbackScanPageSize = e.FallbackScanPageSize
	}
	cfg.RevalidateLinks = e.RevalidateLinks
	return cfg
}

// Details groups the free-form base fields of an asset.
type Details struct {
	Brand        string
	Model        string
	SerialNumber string
	Notes        string
	BranchID     *uuid.UUID
	PurchaseDate *time.Time
	ReceivedDate *time.Time
}

// Form is one open asset editor session. It composes the attribute schema
// resolver, the availability pools and the accessory cross-link state into
// a single payload submitted to the inventory API on save. All state is
// held here explicitly; nothing is process-global.
type Form struct {
	mode   Mode
	client inventory.Client
	pools  *pool.Pools
	logger *log.Logger
	config Config

	asset     model.Asset
	original  *model.Asset
	attrs     model.AttributeMap
	links     map[string]*LinkState
	pending   *schema.Category
	fixedType bool
}

// NewCreate opens a create-mode form. A nil pools gets a fresh pool set
// backed by the same client.
func NewCreate(client inventory.Client, pools *pool.Pools, logger *log.Logger, config Config) *Form {
	if logger == nil {
		logger = log.Default()
	}
	if pools == nil {
		pools = pool.New(client, logger, config.PoolPageSize)
	}
	return &Form{
		mode:   ModeCreate,
		client: client,
		pools:  pools,
		logger: logger,
		config: config,
		asset:  model.Asset{Status: model.StatusAvailable},
		attrs:  model.AttributeMap{},
		links:  map[string]*LinkState{},
	}
}

// NewEdit opens an edit-mode form over an existing asset. Accessory link
// state is rebuilt from the stored attribute map.
func NewEdit(client inventory.Client, pools *pool.Pools, logger *log.Logger, config Config, asset model.Asset) *Form {
	if logger == nil {
		logger = log.Default()
	}
	if pools == nil {
		pools = pool.New(client, logger, config.PoolPageSize)
	}

	f := &Form{
		mode:     ModeEdit,
		client:   client,
		pools:    pools,
		logger:   logger,
		config:   config,
		asset:    asset,
		original: &asset,
		attrs:    model.AttributeMap{},
		links:    map[string]*LinkState{},
	}
	f.loadAttributes(asset.Attributes)
	return f
}

// Open refreshes the availability pools for the form's current type. Pool
// refresh failures are logged and non-blocking.
func (f *Form) Open(ctx context.Context) {
	f.pools.RefreshAll(ctx, schema.CategoriesFor(f.asset.AssetType))
}

// Mode returns the form mode.
func (f *Form) Mode() Mode { return f.mode }

// Asset returns a copy of the working asset, without the composed
// attribute map (that is built on save).
func (f *Form) Asset() model.Asset { return f.asset }

// AssetCode returns the current asset code.
func (f *Form) AssetCode() string { return f.asset.AssetCode }

// SetType selects the asset type. In create mode the code-prefix policy
// runs: the configured prefix replaces the code unless the code already
// starts with it, and types without a prefix clear the code. Changing type
// resets typed attributes and accessory links, since the field set is a
// function of the type.
func (f *Form) SetType(assetType string) error {
	if !schema.KnownType(assetType) {
		return ErrUnknownType
	}
	if f.fixedType && assetType != f.asset.AssetType {
		return ErrTypeFixed
	}
	if assetType == f.asset.AssetType {
		return nil
	}

	f.asset.AssetType = assetType
	if f.mode == ModeCreate {
		f.asset.AssetCode = schema.ApplyTypeChange(f.asset.AssetCode, assetType)
	}

	for _, link := range f.links {
		if link.SelectedID != nil {
			f.pools.Release(*link.SelectedID)
		}
	}
	f.attrs = model.AttributeMap{}
	f.links = map[string]*LinkState{}
	for _, category := range schema.CategoriesFor(assetType) {
		f.links[category.Type] = &LinkState{}
	}
	f.pending = nil
	return nil
}

// SetAssetCode overrides the asset code, prefix convention or not.
func (f *Form) SetAssetCode(code string) {
	f.asset.AssetCode = code
}

// SetDetails updates the free-form base fields.
func (f *Form) SetDetails(d Details) {
	f.asset.Brand = d.Brand
	f.asset.Model = d.Model
	f.asset.SerialNumber = d.SerialNumber
	f.asset.Notes = d.Notes
	f.asset.BranchID = d.BranchID
	f.asset.PurchaseDate = d.PurchaseDate
	f.asset.ReceivedDate = d.ReceivedDate
}

// SetStatus changes the working status. An asset with an active assignment
// keeps its server-derived status; the control is locked.
func (f *Form) SetStatus(status model.AssetStatus) error {
	if f.original != nil && f.original.IsAssigned() {
		return ErrStatusLocked
	}
	if err := validation.ValidateSettableStatus(status); err != nil {
		return &ValidationError{Messages: []string{err.Error()}}
	}
	f.asset.Status = status
	return nil
}

// SetAttribute stages a typed attribute value. Values are validated against
// the type's schema on save; keys outside the schema are dropped there.
func (f *Form) SetAttribute(key string, value interface{}) {
	f.attrs[key] = value
}

// Attribute returns a staged attribute value.
func (f *Form) Attribute(key string) (interface{}, bool) {
	v, ok := f.attrs[key]
	return v, ok
}

// Fields returns the attribute field descriptors for the current type.
func (f *Form) Fields() []schema.FieldDescriptor {
	return schema.FieldsFor(f.asset.AssetType)
}

// AvailableAccessories returns the current pool snapshot for a category.
func (f *Form) AvailableAccessories(categoryType string) ([]model.Asset, error) {
	category, _, err := f.link(categoryType)
	if err != nil {
		return nil, err
	}
	return f.pools.Available(category), nil
}

// BeginAccessoryCreate opens the nested create form for the pending
// category, fixed to the accessory's type. The accessory types carry no
// link blocks of their own, so nesting is naturally capped at one level.
func (f *Form) BeginAccessoryCreate(ctx context.Context) (*Form, error) {
	if f.pending == nil {
		return nil, ErrNoCreationPending
	}

	child := NewCreate(f.client, f.pools, f.logger, f.config)
	if err := child.SetType(f.pending.Type); err != nil {
		return nil, err
	}
	child.fixedType = true
	child.Open(ctx)
	return child, nil
}

// ResolveAccessoryCreate finishes the nested create flow: the new unit's id
// is written into the pending category's selection, the marker is cleared
// and that category's pool is refreshed.
func (f *Form) ResolveAccessoryCreate(ctx context.Context, created *model.Asset) error {
	if f.pending == nil {
		return ErrNoCreationPending
	}

	category := *f.pending
	link := f.links[category.Type]
	id := created.ID
	link.SelectedID = &id
	f.pending = nil

	// The new unit is linked the moment it resolves; claiming it keeps it
	// out of the refreshed snapshot other forms see.
	f.pools.Claim(id)
	_ = f.pools.Refresh(ctx, category)
	return nil
}

// CancelAccessoryCreate disarms the pending creation without linking
// anything; the category keeps its create-new radio with no selection.
func (f *Form) CancelAccessoryCreate() {
	f.pending = nil
}

// Save validates the composed record and submits it as one payload. Any
// failure blocks the write and leaves the in-progress form state intact.
func (f *Form) Save(ctx context.Context) (*model.Asset, error) {
	candidate := f.asset
	candidate.Attributes = f.composeAttributes()

	var errs []string
	if f.mode == ModeCreate {
		errs = validation.ValidateAssetInput(&candidate)
	} else {
		errs = validation.ValidateAssetInputForUpdate(&candidate)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}

	if schema.IsPhoneType(candidate.AssetType) {
		if err := f.checkPhoneDuplicate(ctx, &candidate); err != nil {
			return nil, err
		}
	}

	if f.config.RevalidateLinks {
		if err := f.revalidateLinks(ctx); err != nil {
			return nil, err
		}
	}

	if f.mode == ModeCreate {
		created, err := f.client.CreateAsset(ctx, candidate)
		if err != nil {
			return nil, f.saveError(err)
		}
		f.asset.ID = created.ID
		return created, nil
	}

	if err := f.client.UpdateAsset(ctx, candidate.ID, candidate); err != nil {
		return nil, f.saveError(err)
	}
	return &candidate, nil
}

// saveError maps structured API rejections onto the form's sentinel errors.
// The pre-submit checks catch most of these; the API stays authoritative
// when a conflicting write lands in between.
func (f *Form) saveError(err error) error {
	switch {
	case apperrors.HasCode(err, apperrors.ErrorCodeDuplicatePhone):
		return ErrDuplicatePhone
	case apperrors.HasCode(err, apperrors.ErrorCodeAssetAssigned):
		return ErrStatusLocked
	}
	return fmt.Errorf("failed to save asset: %w", err)
}

// composeAttributes merges the staged typed attributes with the accessory
// link state of every category in the current type's schema.
func (f *Form) composeAttributes() model.AttributeMap {
	composed := model.AttributeMap{}
	for key, value := range f.attrs {
		composed[key] = value
	}

	for _, category := range schema.CategoriesFor(f.asset.AssetType) {
		link := f.links[category.Type]
		composed[category.HasKey()] = link.HasAccessory
		if !link.HasAccessory {
			continue
		}
		if link.Radio != "" {
			composed[category.RadioKey()] = link.Radio
		}
		if link.SelectedID != nil {
			composed[category.SelectedKey()] = link.SelectedID.String()
		}
	}
	return composed
}

// loadAttributes splits a stored attribute map into typed attributes and
// per-category link state.
func (f *Form) loadAttributes(attrs model.AttributeMap) {
	categories := schema.CategoriesFor(f.asset.AssetType)
	for _, category := range categories {
		f.links[category.Type] = &LinkState{}
	}

	linkKeys := map[string]bool{}
	for _, category := range categories {
		link := f.links[category.Type]
		linkKeys[category.HasKey()] = true
		linkKeys[category.RadioKey()] = true
		linkKeys[category.SelectedKey()] = true

		if has, ok := attrs[category.HasKey()].(bool); ok {
			link.HasAccessory = has
		}
		if !link.HasAccessory {
			continue
		}
		if radio, ok := attrs[category.RadioKey()].(string); ok {
			link.Radio = radio
		}
		if raw, ok := attrs[category.SelectedKey()].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				link.SelectedID = &id
				f.pools.Claim(id)
			}
		}
	}

	for key, value := range attrs {
		if !linkKeys[key] {
			f.attrs[key] = value
		}
	}
}

// checkPhoneDuplicate rejects the save when another asset holds the same
// normalized phone number. The direct uniqueness call is preferred; when it
// fails, a full-table scan using the same normalization decides.
func (f *Form) checkPhoneDuplicate(ctx context.Context, candidate *model.Asset) error {
	raw, _ := candidate.Attributes["phoneNumber"].(string)
	normalized := validation.NormalizePhone(raw)
	if normalized == "" {
		return nil
	}

	check, err := f.client.CheckPhoneUnique(ctx, normalized)
	if err != nil {
		f.logger.Printf("Phone uniqueness check failed, falling back to inventory scan: %v", err)
		return f.scanForDuplicatePhone(ctx, candidate.ID, normalized)
	}

	if check.Exists && (check.AssetID == nil || *check.AssetID != candidate.ID) {
		return ErrDuplicatePhone
	}
	return nil
}

// scanForDuplicatePhone is the fallback duplicate check: page through the
// inventory and compare normalized numbers, excluding the asset under edit.
// Termination counts the items actually served, not the requested page
// size; the server may cap its pages smaller than the request.
func (f *Form) scanForDuplicatePhone(ctx context.Context, selfID uuid.UUID, normalized string) error {
	pageSize := f.config.FallbackScanPageSize
	if pageSize <= 0 {
		pageSize = 2000
	}

	scanned := 0
	for page := 1; ; page++ {
		result, err := f.client.ListAssets(ctx, inventory.Filter{}, page, pageSize)
		if err != nil {
			return fmt.Errorf("duplicate phone fallback scan failed: %w", err)
		}
		for _, asset := range result.Items {
			if asset.ID == selfID || !schema.IsPhoneType(asset.AssetType) {
				continue
			}
			other, _ := asset.Attributes["phoneNumber"].(string)
			if other != "" && validation.NormalizePhone(other) == normalized {
				return ErrDuplicatePhone
			}
		}
		scanned += len(result.Items)
		if len(result.Items) == 0 || scanned >= result.Total {
			return nil
		}
	}
}

// revalidateLinks re-checks every selected-existing accessory against a
// fresh pool snapshot. A unit that went unavailable between form open and
// submit blocks the save instead of writing a stale reference.
func (f *Form) revalidateLinks(ctx context.Context) error {
	for _, category := range schema.CategoriesFor(f.asset.AssetType) {
		link := f.links[category.Type]
		if !link.HasAccessory || link.Radio != schema.RadioSelectExisting || link.SelectedID == nil {
			continue
		}
		if err := f.pools.Refresh(ctx, category); err != nil {
			// Stale snapshot still decides; refresh failure is non-fatal.
			f.logger.Printf("Link revalidation refresh failed for %s: %v", category.Type, err)
		}
		if !f.pools.Contains(category, *link.SelectedID) {
			return fmt.Errorf("%w: %s %s", ErrAccessoryUnavailable, category.Type, link.SelectedID)
		}
	}
	return nil
}
