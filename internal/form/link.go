package form

import (
	"github.com/google/uuid"

	"asset-inventory-api/internal/schema"
)

// LinkState tracks one accessory category's cross-link on the open form.
// At most one of {radio=create pending, radio=select with an id, unset}
// holds at a time; unchecking the has-flag resets the whole state.
type LinkState struct {
	HasAccessory bool
	Radio        string // "" until the user picks create-new or select-existing
	SelectedID   *uuid.UUID
}

// SetHasAccessory toggles the "has X" flag for a category. Unchecking
// clears the radio and the selection unconditionally, and disarms a pending
// creation for that category.
func (f *Form) SetHasAccessory(categoryType string, has bool) error {
	category, link, err := f.link(categoryType)
	if err != nil {
		return err
	}

	link.HasAccessory = has
	if !has {
		link.Radio = ""
		if link.SelectedID != nil {
			f.pools.Release(*link.SelectedID)
			link.SelectedID = nil
		}
		if f.pending != nil && f.pending.Type == category.Type {
			f.pending = nil
		}
	}
	return nil
}

// ChooseCreateNew switches the category to the "add new" radio, clearing
// any existing selection and arming the pending-creation marker. Only one
// creation may be pending across all categories; arming a second one is
// rejected rather than silently clobbering the first.
func (f *Form) ChooseCreateNew(categoryType string) error {
	category, link, err := f.link(categoryType)
	if err != nil {
		return err
	}
	if !link.HasAccessory {
		return ErrAccessoryNotEnabled
	}
	if f.pending != nil && f.pending.Type != category.Type {
		return ErrCreationPending
	}

	link.Radio = schema.RadioCreateNew
	if link.SelectedID != nil {
		f.pools.Release(*link.SelectedID)
		link.SelectedID = nil
	}
	f.pending = &category
	return nil
}

// ChooseExisting switches the category to the "assign existing" radio. The
// candidate list comes from the category's availability pool.
func (f *Form) ChooseExisting(categoryType string) error {
	category, link, err := f.link(categoryType)
	if err != nil {
		return err
	}
	if !link.HasAccessory {
		return ErrAccessoryNotEnabled
	}

	link.Radio = schema.RadioSelectExisting
	if f.pending != nil && f.pending.Type == category.Type {
		f.pending = nil
	}
	return nil
}

// SelectAccessory records the chosen existing unit for a category. The id
// must be present in the category's current pool snapshot.
func (f *Form) SelectAccessory(categoryType string, id uuid.UUID) error {
	category, link, err := f.link(categoryType)
	if err != nil {
		return err
	}
	if !link.HasAccessory || link.Radio != schema.RadioSelectExisting {
		return ErrAccessoryNotEnabled
	}
	if link.SelectedID != nil && *link.SelectedID == id {
		return nil
	}
	// A unit claimed by another open form is off limits even while the
	// snapshot still lists it.
	if !f.pools.Contains(category, id) || f.pools.Claimed(id) {
		return ErrAccessoryUnavailable
	}

	if link.SelectedID != nil {
		f.pools.Release(*link.SelectedID)
	}
	selected := id
	link.SelectedID = &selected
	f.pools.Claim(id)
	return nil
}

// LinkState returns a copy of the category's current link state.
func (f *Form) LinkState(categoryType string) (LinkState, bool) {
	link, ok := f.links[categoryType]
	if !ok {
		return LinkState{}, false
	}
	return *link, true
}

// PendingCreation returns the category whose nested create flow is armed,
// if any.
func (f *Form) PendingCreation() (schema.Category, bool) {
	if f.pending == nil {
		return schema.Category{}, false
	}
	return *f.pending, true
}

// link resolves a category tag against the open form's schema.
func (f *Form) link(categoryType string) (schema.Category, *LinkState, error) {
	category, ok := schema.CategoryByType(categoryType)
	if !ok {
		return schema.Category{}, nil, ErrUnknownCategory
	}
	state, ok := f.links[categoryType]
	if !ok {
		return schema.Category{}, nil, ErrUnknownCategory
	}
	return category, state, nil
}
