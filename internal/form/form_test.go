package form

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"

	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/pool"
	"asset-inventory-api/internal/schema"
)

// mockClient is a function-field mock of the inventory client.
type mockClient struct {
	FetchEditorConfigFunc func(ctx context.Context) (*config.EditorConfig, error)
	ListAssetsFunc        func(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error)
	CheckPhoneUniqueFunc  func(ctx context.Context, normalizedNumber string) (*inventory.PhoneCheck, error)
	CreateAssetFunc       func(ctx context.Context, asset model.Asset) (*model.Asset, error)
	UpdateAssetFunc       func(ctx context.Context, id uuid.UUID, asset model.Asset) error
}

func newMockClient() *mockClient {
	return &mockClient{
		FetchEditorConfigFunc: func(ctx context.Context) (*config.EditorConfig, error) {
			return &config.EditorConfig{}, nil
		},
		ListAssetsFunc: func(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error) {
			return &inventory.AssetPage{}, nil
		},
		CheckPhoneUniqueFunc: func(ctx context.Context, normalizedNumber string) (*inventory.PhoneCheck, error) {
			return &inventory.PhoneCheck{}, nil
		},
		CreateAssetFunc: func(ctx context.Context, asset model.Asset) (*model.Asset, error) {
			created := asset
			created.ID = uuid.New()
			return &created, nil
		},
		UpdateAssetFunc: func(ctx context.Context, id uuid.UUID, asset model.Asset) error {
			return nil
		},
	}
}

func (m *mockClient) FetchEditorConfig(ctx context.Context) (*config.EditorConfig, error) {
	return m.FetchEditorConfigFunc(ctx)
}

func (m *mockClient) ListAssets(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error) {
	return m.ListAssetsFunc(ctx, filter, page, pageSize)
}

func (m *mockClient) CheckPhoneUnique(ctx context.Context, normalizedNumber string) (*inventory.PhoneCheck, error) {
	return m.CheckPhoneUniqueFunc(ctx, normalizedNumber)
}

func (m *mockClient) CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	return m.CreateAssetFunc(ctx, asset)
}

func (m *mockClient) UpdateAsset(ctx context.Context, id uuid.UUID, asset model.Asset) error {
	return m.UpdateAssetFunc(ctx, id, asset)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// poolUnit returns a unit eligible for the given accessory category's pool.
func poolUnit(categoryType string) model.Asset {
	return model.Asset{
		ID:        uuid.New(),
		AssetType: categoryType,
		Status:    model.StatusAvailable,
	}
}

// serveUnits wires the mock list endpoint to return the given units per type.
func serveUnits(client *mockClient, unitsByType map[string][]model.Asset) {
	client.ListAssetsFunc = func(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error) {
		units := unitsByType[filter.AssetType]
		return &inventory.AssetPage{Items: units, Total: len(units)}, nil
	}
}

func TestSetTypeAppliesCodePrefix(t *testing.T) {
	f := NewCreate(newMockClient(), nil, testLogger(), DefaultConfig())

	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.AssetCode() != "LAPT - " {
		t.Errorf("Expected code %q, got %q", "LAPT - ", f.AssetCode())
	}

	f.SetAssetCode("LAPT - 0042")
	if err := f.SetType(schema.TypeSmartphone); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.AssetCode() != "CEL - " {
		t.Errorf("Expected prefix swap to %q, got %q", "CEL - ", f.AssetCode())
	}

	if err := f.SetType(schema.TypeMouse); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.AssetCode() != "" {
		t.Errorf("Expected code cleared for a type without a prefix, got %q", f.AssetCode())
	}

	if err := f.SetType("typewriter"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Expected ErrUnknownType, got %v", err)
	}
}

func TestSetTypeResetsAttributesAndLinks(t *testing.T) {
	client := newMockClient()
	serveUnits(client, map[string][]model.Asset{
		schema.TypeMouse: {poolUnit(schema.TypeMouse)},
	})

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.SetAttribute("cpu", "i7-1165G7")
	if err := f.SetHasAccessory(schema.TypeMouse, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := f.SetType(schema.TypeSmartphone); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, ok := f.Attribute("cpu"); ok {
		t.Error("Expected staged attributes to reset on type change")
	}
	if _, ok := f.LinkState(schema.TypeMouse); ok {
		t.Error("Expected computer-only link state to be gone after switching to smartphone")
	}
	if state, ok := f.LinkState(schema.TypeCellCharger); !ok || state.HasAccessory {
		t.Error("Expected fresh, unchecked link state for the mobile categories")
	}
}

func TestUncheckingAccessoryResetsLinkState(t *testing.T) {
	client := newMockClient()
	unit := poolUnit(schema.TypeMouse)
	serveUnits(client, map[string][]model.Asset{schema.TypeMouse: {unit}})

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.Open(context.Background())

	if err := f.SetHasAccessory(schema.TypeMouse, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseExisting(schema.TypeMouse); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.SelectAccessory(schema.TypeMouse, unit.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := f.SetHasAccessory(schema.TypeMouse, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	state, _ := f.LinkState(schema.TypeMouse)
	if state.HasAccessory || state.Radio != "" || state.SelectedID != nil {
		t.Errorf("Expected fully reset link state, got %+v", state)
	}

	// Unchecking again is a no-op, not an error
	if err := f.SetHasAccessory(schema.TypeMouse, false); err != nil {
		t.Fatalf("Unexpected error on repeat uncheck: %v", err)
	}
}

func TestSelectAccessoryRequiresPoolMembership(t *testing.T) {
	client := newMockClient()
	unit := poolUnit(schema.TypeMouse)
	serveUnits(client, map[string][]model.Asset{schema.TypeMouse: {unit}})

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.Open(context.Background())

	// Selection before enabling the accessory is rejected
	if err := f.SelectAccessory(schema.TypeMouse, unit.ID); !errors.Is(err, ErrAccessoryNotEnabled) {
		t.Errorf("Expected ErrAccessoryNotEnabled, got %v", err)
	}

	if err := f.SetHasAccessory(schema.TypeMouse, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseExisting(schema.TypeMouse); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := f.SelectAccessory(schema.TypeMouse, uuid.New()); !errors.Is(err, ErrAccessoryUnavailable) {
		t.Errorf("Expected ErrAccessoryUnavailable for an id outside the pool, got %v", err)
	}
	if err := f.SelectAccessory(schema.TypeMouse, unit.ID); err != nil {
		t.Fatalf("Unexpected error selecting a pooled unit: %v", err)
	}

	state, _ := f.LinkState(schema.TypeMouse)
	if state.SelectedID == nil || *state.SelectedID != unit.ID {
		t.Errorf("Expected selection %s, got %+v", unit.ID, state)
	}
}

func TestOnlyOneAccessoryCreationPending(t *testing.T) {
	f := NewCreate(newMockClient(), nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, categoryType := range []string{schema.TypeKeyboard, schema.TypeMonitor} {
		if err := f.SetHasAccessory(categoryType, true); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if err := f.ChooseCreateNew(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseCreateNew(schema.TypeMonitor); !errors.Is(err, ErrCreationPending) {
		t.Errorf("Expected ErrCreationPending for a second armed category, got %v", err)
	}

	// Re-arming the same category is allowed
	if err := f.ChooseCreateNew(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error re-arming the same category: %v", err)
	}

	// Switching the armed category to select-existing frees the slot
	if err := f.ChooseExisting(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseCreateNew(schema.TypeMonitor); err != nil {
		t.Fatalf("Expected the pending slot to be free, got %v", err)
	}

	// Unchecking the armed category disarms it too
	if err := f.SetHasAccessory(schema.TypeMonitor, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, pending := f.PendingCreation(); pending {
		t.Error("Expected no pending creation after unchecking the armed category")
	}
}

func TestNestedAccessoryCreateFlow(t *testing.T) {
	client := newMockClient()
	created := model.Asset{
		ID:        uuid.New(),
		AssetCode: "KB-001",
		AssetType: schema.TypeKeyboard,
		Status:    model.StatusAvailable,
	}
	client.CreateAssetFunc = func(ctx context.Context, asset model.Asset) (*model.Asset, error) {
		out := asset
		out.ID = created.ID
		return &out, nil
	}
	serveUnits(client, map[string][]model.Asset{schema.TypeKeyboard: {created}})

	parent := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := parent.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := parent.BeginAccessoryCreate(context.Background()); !errors.Is(err, ErrNoCreationPending) {
		t.Errorf("Expected ErrNoCreationPending before arming, got %v", err)
	}

	if err := parent.SetHasAccessory(schema.TypeKeyboard, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := parent.ChooseCreateNew(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	child, err := parent.BeginAccessoryCreate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if child.Mode() != ModeCreate {
		t.Errorf("Expected a create-mode child form, got %s", child.Mode())
	}
	if child.Asset().AssetType != schema.TypeKeyboard {
		t.Errorf("Expected child fixed to %q, got %q", schema.TypeKeyboard, child.Asset().AssetType)
	}
	if err := child.SetType(schema.TypeLaptop); !errors.Is(err, ErrTypeFixed) {
		t.Errorf("Expected ErrTypeFixed on the nested form, got %v", err)
	}

	child.SetAssetCode("KB-001")
	child.SetAttribute("connectionType", "USB")
	saved, err := child.Save(context.Background())
	if err != nil {
		t.Fatalf("Unexpected child save error: %v", err)
	}

	if err := parent.ResolveAccessoryCreate(context.Background(), saved); err != nil {
		t.Fatalf("Unexpected resolve error: %v", err)
	}

	state, _ := parent.LinkState(schema.TypeKeyboard)
	if state.SelectedID == nil || *state.SelectedID != created.ID {
		t.Errorf("Expected the new unit %s to be selected, got %+v", created.ID, state)
	}
	if _, pending := parent.PendingCreation(); pending {
		t.Error("Expected the pending marker to clear after resolve")
	}

	// Resolving twice is rejected
	if err := parent.ResolveAccessoryCreate(context.Background(), saved); !errors.Is(err, ErrNoCreationPending) {
		t.Errorf("Expected ErrNoCreationPending on double resolve, got %v", err)
	}
}

func TestCancelAccessoryCreate(t *testing.T) {
	f := NewCreate(newMockClient(), nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.SetHasAccessory(schema.TypeHub, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseCreateNew(schema.TypeHub); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f.CancelAccessoryCreate()

	if _, pending := f.PendingCreation(); pending {
		t.Error("Expected no pending creation after cancel")
	}
	state, _ := f.LinkState(schema.TypeHub)
	if !state.HasAccessory || state.Radio != schema.RadioCreateNew {
		t.Errorf("Expected the category to keep its radio after cancel, got %+v", state)
	}
	if state.SelectedID != nil {
		t.Error("Expected no selection after cancel")
	}
}

func TestSaveComposesLinkAttributes(t *testing.T) {
	client := newMockClient()
	unit := poolUnit(schema.TypeMouse)
	serveUnits(client, map[string][]model.Asset{schema.TypeMouse: {unit}})

	var submitted model.Asset
	client.CreateAssetFunc = func(ctx context.Context, asset model.Asset) (*model.Asset, error) {
		submitted = asset
		out := asset
		out.ID = uuid.New()
		return &out, nil
	}

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.Open(context.Background())
	f.SetAssetCode("LAPT - 0001")
	f.SetAttribute("cpu", "i7-1165G7")
	f.SetAttribute("ram", float64(16))

	if err := f.SetHasAccessory(schema.TypeMouse, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseExisting(schema.TypeMouse); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.SelectAccessory(schema.TypeMouse, unit.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	saved, err := f.Save(context.Background())
	if err != nil {
		t.Fatalf("Unexpected save error: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Error("Expected the saved asset to carry the server-issued id")
	}

	attrs := submitted.Attributes
	if attrs["hasMouse"] != true {
		t.Errorf("Expected hasMouse=true, got %v", attrs["hasMouse"])
	}
	if attrs["hasMouseRadio"] != schema.RadioSelectExisting {
		t.Errorf("Expected select-existing radio, got %v", attrs["hasMouseRadio"])
	}
	if attrs["selectedMouseId"] != unit.ID.String() {
		t.Errorf("Expected selected id %s, got %v", unit.ID, attrs["selectedMouseId"])
	}

	// Untouched categories submit an explicit false and nothing else
	if attrs["hasKeyboard"] != false {
		t.Errorf("Expected hasKeyboard=false, got %v", attrs["hasKeyboard"])
	}
	if _, ok := attrs["hasKeyboardRadio"]; ok {
		t.Error("Did not expect a radio key for an unchecked category")
	}
	if _, ok := attrs["selectedKeyboardId"]; ok {
		t.Error("Did not expect a selection key for an unchecked category")
	}

	if attrs["cpu"] != "i7-1165G7" {
		t.Errorf("Expected typed attributes in the payload, got %v", attrs["cpu"])
	}
}

func TestSaveValidationFailureBlocksWrite(t *testing.T) {
	client := newMockClient()
	called := false
	client.CreateAssetFunc = func(ctx context.Context, asset model.Asset) (*model.Asset, error) {
		called = true
		out := asset
		out.ID = uuid.New()
		return &out, nil
	}

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeSmartphone); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.SetAssetCode("CEL - 0001")
	// imeis deliberately missing

	_, err := f.Save(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected a ValidationError, got %v", err)
	}
	if called {
		t.Error("Expected no API write on validation failure")
	}

	// The form stays editable; fixing the problem makes the save pass
	f.SetAttribute("imeis", []interface{}{"356938035643809"})
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error after fixing validation: %v", err)
	}
	if !called {
		t.Error("Expected the API write after validation passed")
	}
}

func TestSaveRejectsDuplicatePhone(t *testing.T) {
	client := newMockClient()
	otherID := uuid.New()
	client.CheckPhoneUniqueFunc = func(ctx context.Context, normalized string) (*inventory.PhoneCheck, error) {
		if normalized != "+525551234567" {
			t.Errorf("Expected the normalized number, got %q", normalized)
		}
		return &inventory.PhoneCheck{Exists: true, AssetID: &otherID}, nil
	}

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeSmartphone); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.SetAssetCode("CEL - 0001")
	f.SetAttribute("imeis", []interface{}{"356938035643809"})
	f.SetAttribute("phoneNumber", "+52 555 123 4567")

	_, err := f.Save(context.Background())
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("Expected ErrDuplicatePhone, got %v", err)
	}
}

func TestSaveAllowsOwnPhoneOnEdit(t *testing.T) {
	selfID := uuid.New()
	client := newMockClient()
	client.CheckPhoneUniqueFunc = func(ctx context.Context, normalized string) (*inventory.PhoneCheck, error) {
		return &inventory.PhoneCheck{Exists: true, AssetID: &selfID}, nil
	}
	updated := false
	client.UpdateAssetFunc = func(ctx context.Context, id uuid.UUID, asset model.Asset) error {
		updated = true
		return nil
	}

	existing := model.Asset{
		ID:        selfID,
		AssetCode: "CEL - 0007",
		AssetType: schema.TypeSmartphone,
		Status:    model.StatusAvailable,
		Attributes: model.AttributeMap{
			"imeis":       []interface{}{"356938035643809"},
			"phoneNumber": "+525551234567",
		},
	}

	f := NewEdit(client, nil, testLogger(), DefaultConfig(), existing)
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error: %v", err)
	}
	if !updated {
		t.Error("Expected the update to go through")
	}
}

func TestSaveFallsBackToScanOnPhoneCheckFailure(t *testing.T) {
	selfID := uuid.New()
	client := newMockClient()
	client.CheckPhoneUniqueFunc = func(ctx context.Context, normalized string) (*inventory.PhoneCheck, error) {
		return nil, errors.New("phone-check endpoint unavailable")
	}

	inventoryAssets := []model.Asset{
		{
			// The asset under edit itself; must be excluded from the scan
			ID:         selfID,
			AssetType:  schema.TypeSmartphone,
			Attributes: model.AttributeMap{"phoneNumber": "+525551234567"},
		},
		{
			// A laptop never counts, whatever its attributes say
			ID:         uuid.New(),
			AssetType:  schema.TypeLaptop,
			Attributes: model.AttributeMap{"phoneNumber": "+525551234567"},
		},
	}
	client.ListAssetsFunc = func(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error) {
		if page > 1 {
			return &inventory.AssetPage{Total: len(inventoryAssets)}, nil
		}
		return &inventory.AssetPage{Items: inventoryAssets, Total: len(inventoryAssets)}, nil
	}

	existing := model.Asset{
		ID:        selfID,
		AssetCode: "CEL - 0007",
		AssetType: schema.TypeSmartphone,
		Status:    model.StatusAvailable,
		Attributes: model.AttributeMap{
			"imeis":       []interface{}{"356938035643809"},
			"phoneNumber": "+52 555 123 4567",
		},
	}

	f := NewEdit(client, nil, testLogger(), DefaultConfig(), existing)
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Expected the fallback scan to clear the save, got %v", err)
	}

	// A formatted variant of the same number on another phone asset collides
	inventoryAssets = append(inventoryAssets, model.Asset{
		ID:         uuid.New(),
		AssetType:  schema.TypeTablet,
		Attributes: model.AttributeMap{"phoneNumber": "+52 (555) 123-4567"},
	})
	if _, err := f.Save(context.Background()); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("Expected ErrDuplicatePhone from the fallback scan, got %v", err)
	}
}

func TestSaveRevalidatesSelectedLinks(t *testing.T) {
	client := newMockClient()
	unit := poolUnit(schema.TypeMouse)
	pools := map[string][]model.Asset{schema.TypeMouse: {unit}}
	serveUnits(client, pools)

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.Open(context.Background())
	f.SetAssetCode("LAPT - 0001")

	if err := f.SetHasAccessory(schema.TypeMouse, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.ChooseExisting(schema.TypeMouse); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.SelectAccessory(schema.TypeMouse, unit.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The unit disappears between selection and submit
	pools[schema.TypeMouse] = nil
	_, err := f.Save(context.Background())
	if !errors.Is(err, ErrAccessoryUnavailable) {
		t.Errorf("Expected ErrAccessoryUnavailable on stale selection, got %v", err)
	}

	// Once the unit is back in the inventory the same save goes through
	pools[schema.TypeMouse] = []model.Asset{unit}
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error once the unit is back: %v", err)
	}
}

func TestEditRebuildsLinkStateFromStoredAttributes(t *testing.T) {
	mouseID := uuid.New()
	existing := model.Asset{
		ID:        uuid.New(),
		AssetCode: "LAPT - 0042",
		AssetType: schema.TypeLaptop,
		Status:    model.StatusAvailable,
		Attributes: model.AttributeMap{
			"cpu":             "i5-1235U",
			"hasMouse":        true,
			"hasMouseRadio":   schema.RadioSelectExisting,
			"selectedMouseId": mouseID.String(),
			"hasKeyboard":     false,
		},
	}

	f := NewEdit(newMockClient(), nil, testLogger(), DefaultConfig(), existing)

	state, ok := f.LinkState(schema.TypeMouse)
	if !ok {
		t.Fatal("Expected mouse link state on a laptop edit form")
	}
	if !state.HasAccessory || state.Radio != schema.RadioSelectExisting {
		t.Errorf("Expected rebuilt link state, got %+v", state)
	}
	if state.SelectedID == nil || *state.SelectedID != mouseID {
		t.Errorf("Expected selected mouse %s, got %+v", mouseID, state)
	}

	if keyboard, _ := f.LinkState(schema.TypeKeyboard); keyboard.HasAccessory {
		t.Error("Expected the keyboard link to stay unchecked")
	}

	if cpu, _ := f.Attribute("cpu"); cpu != "i5-1235U" {
		t.Errorf("Expected typed attributes split out of the stored map, got %v", cpu)
	}
	if _, ok := f.Attribute("hasMouse"); ok {
		t.Error("Expected link keys to stay out of the typed attributes")
	}
}

func TestEditTypeChangeAllowed(t *testing.T) {
	existing := model.Asset{
		ID:        uuid.New(),
		AssetCode: "LAPT - 0042",
		AssetType: schema.TypeLaptop,
		Status:    model.StatusAvailable,
	}

	f := NewEdit(newMockClient(), nil, testLogger(), DefaultConfig(), existing)
	if err := f.SetType(schema.TypeServer); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Edit mode never rewrites the code on type change
	if f.AssetCode() != "LAPT - 0042" {
		t.Errorf("Expected the code untouched in edit mode, got %q", f.AssetCode())
	}
}

func TestSetStatusLockedWhileAssigned(t *testing.T) {
	person := uuid.New()
	existing := model.Asset{
		ID:               uuid.New(),
		AssetCode:        "LAPT - 0042",
		AssetType:        schema.TypeLaptop,
		Status:           model.StatusAssigned,
		AssignedPersonID: &person,
	}

	f := NewEdit(newMockClient(), nil, testLogger(), DefaultConfig(), existing)
	if err := f.SetStatus(model.StatusAvailable); !errors.Is(err, ErrStatusLocked) {
		t.Errorf("Expected ErrStatusLocked, got %v", err)
	}

	// The assigned status still round-trips through save unchanged
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error: %v", err)
	}
}

func TestSetStatusRejectsAssignedOnCreate(t *testing.T) {
	f := NewCreate(newMockClient(), nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	err := f.SetStatus(model.StatusAssigned)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected a ValidationError for the derived status, got %v", err)
	}

	if err := f.SetStatus(model.StatusMaintenance); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Asset().Status != model.StatusMaintenance {
		t.Errorf("Expected status maintenance, got %s", f.Asset().Status)
	}
}

func TestFallbackScanHandlesServerCappedPages(t *testing.T) {
	client := newMockClient()
	client.CheckPhoneUniqueFunc = func(ctx context.Context, normalized string) (*inventory.PhoneCheck, error) {
		return nil, errors.New("phone-check endpoint unavailable")
	}

	// Twelve assets, the colliding tablet last, so the scan only finds it
	// after paging past the server's cap.
	inventoryAssets := make([]model.Asset, 0, 12)
	for i := 0; i < 11; i++ {
		inventoryAssets = append(inventoryAssets, model.Asset{ID: uuid.New(), AssetType: schema.TypeLaptop})
	}
	inventoryAssets = append(inventoryAssets, model.Asset{
		ID:         uuid.New(),
		AssetType:  schema.TypeTablet,
		Attributes: model.AttributeMap{"phoneNumber": "+52 (555) 123-4567"},
	})

	// The server serves five units per page no matter what size was asked for.
	const servedPageSize = 5
	pagesRequested := 0
	client.ListAssetsFunc = func(ctx context.Context, filter inventory.Filter, page, pageSize int) (*inventory.AssetPage, error) {
		pagesRequested++
		start := (page - 1) * servedPageSize
		if start > len(inventoryAssets) {
			start = len(inventoryAssets)
		}
		end := start + servedPageSize
		if end > len(inventoryAssets) {
			end = len(inventoryAssets)
		}
		return &inventory.AssetPage{Items: inventoryAssets[start:end], Total: len(inventoryAssets)}, nil
	}

	f := NewCreate(client, nil, testLogger(), DefaultConfig())
	if err := f.SetType(schema.TypeSmartphone); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.SetAssetCode("CEL - 0001")
	f.SetAttribute("imeis", []interface{}{"356938035643809"})
	f.SetAttribute("phoneNumber", "+525551234567")

	if _, err := f.Save(context.Background()); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("Expected ErrDuplicatePhone from the capped-page scan, got %v", err)
	}
	if pagesRequested != 3 {
		t.Errorf("Expected the scan to walk 3 served pages, got %d", pagesRequested)
	}

	// Without the collision the scan walks the same pages and stops.
	inventoryAssets = inventoryAssets[:11]
	pagesRequested = 0
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error on a clean scan: %v", err)
	}
	if pagesRequested != 3 {
		t.Errorf("Expected the clean scan to stop after 3 served pages, got %d", pagesRequested)
	}
}

func TestLinkedUnitHiddenFromOtherForms(t *testing.T) {
	client := newMockClient()
	unit := poolUnit(schema.TypeKeyboard)
	serveUnits(client, map[string][]model.Asset{schema.TypeKeyboard: {unit}})

	shared := pool.New(client, testLogger(), 100)

	first := NewCreate(client, shared, testLogger(), DefaultConfig())
	if err := first.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	first.Open(context.Background())
	if err := first.SetHasAccessory(schema.TypeKeyboard, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := first.ChooseExisting(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := first.SelectAccessory(schema.TypeKeyboard, unit.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	second := NewCreate(client, shared, testLogger(), DefaultConfig())
	if err := second.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second.Open(context.Background())
	if err := second.SetHasAccessory(schema.TypeKeyboard, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := second.ChooseExisting(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The unit the first form holds stays out of the second form's list
	// even though the second form's Open refreshed the shared pool.
	available, err := second.AvailableAccessories(schema.TypeKeyboard)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, a := range available {
		if a.ID == unit.ID {
			t.Fatal("Expected the held unit to be hidden from the second form")
		}
	}
	if err := second.SelectAccessory(schema.TypeKeyboard, unit.ID); !errors.Is(err, ErrAccessoryUnavailable) {
		t.Errorf("Expected ErrAccessoryUnavailable for a held unit, got %v", err)
	}

	// The holding form itself still saves; its own revalidation must not
	// trip over its own claim.
	first.SetAssetCode("LAPT - 0001")
	if _, err := first.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error on the holding form: %v", err)
	}

	// Unchecking releases the unit back to everyone.
	if err := first.SetHasAccessory(schema.TypeKeyboard, false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := second.SelectAccessory(schema.TypeKeyboard, unit.ID); err != nil {
		t.Fatalf("Expected the released unit to be selectable, got %v", err)
	}
}

func TestResolvedAccessoryHeldAcrossPoolRefresh(t *testing.T) {
	client := newMockClient()
	created := model.Asset{
		ID:        uuid.New(),
		AssetCode: "KB-009",
		AssetType: schema.TypeKeyboard,
		Status:    model.StatusAvailable,
	}
	client.CreateAssetFunc = func(ctx context.Context, asset model.Asset) (*model.Asset, error) {
		out := asset
		out.ID = created.ID
		return &out, nil
	}
	// The server lists the new unit as available the moment it exists.
	serveUnits(client, map[string][]model.Asset{schema.TypeKeyboard: {created}})

	shared := pool.New(client, testLogger(), 100)

	parent := NewCreate(client, shared, testLogger(), DefaultConfig())
	if err := parent.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := parent.SetHasAccessory(schema.TypeKeyboard, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := parent.ChooseCreateNew(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	child, err := parent.BeginAccessoryCreate(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	child.SetAssetCode("KB-009")
	child.SetAttribute("connectionType", "USB")
	saved, err := child.Save(context.Background())
	if err != nil {
		t.Fatalf("Unexpected child save error: %v", err)
	}
	if err := parent.ResolveAccessoryCreate(context.Background(), saved); err != nil {
		t.Fatalf("Unexpected resolve error: %v", err)
	}

	// A second form over the same pool must not be offered the unit the
	// resolve just linked, even though the refreshed snapshot lists it.
	other := NewCreate(client, shared, testLogger(), DefaultConfig())
	if err := other.SetType(schema.TypeLaptop); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := other.SetHasAccessory(schema.TypeKeyboard, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := other.ChooseExisting(schema.TypeKeyboard); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	available, err := other.AvailableAccessories(schema.TypeKeyboard)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("Expected the resolved unit to be held, got %+v", available)
	}
	if err := other.SelectAccessory(schema.TypeKeyboard, created.ID); !errors.Is(err, ErrAccessoryUnavailable) {
		t.Errorf("Expected ErrAccessoryUnavailable for the resolved unit, got %v", err)
	}

	// The resolving parent still passes its own revalidation and saves.
	parent.SetAssetCode("LAPT - 0009")
	if _, err := parent.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected save error on the resolving form: %v", err)
	}
}

func TestConfigFromEditorSection(t *testing.T) {
	got := ConfigFrom(config.EditorConfig{
		PoolPageSize:         50,
		FallbackScanPageSize: 250,
		RevalidateLinks:      true,
	})
	if got.PoolPageSize != 50 || got.FallbackScanPageSize != 250 || !got.RevalidateLinks {
		t.Errorf("Expected the editor section mapped through, got %+v", got)
	}

	// Unset sizes fall back to the defaults.
	got = ConfigFrom(config.EditorConfig{RevalidateLinks: true})
	want := DefaultConfig()
	if got.PoolPageSize != want.PoolPageSize || got.FallbackScanPageSize != want.FallbackScanPageSize {
		t.Errorf("Expected default sizes for an unset section, got %+v", got)
	}
}
