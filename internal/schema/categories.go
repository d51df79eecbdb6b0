package schema

import "fmt"

// Asset type tags. Accessory type tags keep their inventory-legacy Spanish
// names; attribute key stems use the English names the form payloads carry.
const (
	TypeLaptop     = "laptop"
	TypeServer     = "server"
	TypeSmartphone = "smartphone"
	TypeTablet     = "tablet"
	TypeIPPhone    = "ip-phone"
	TypePrinter    = "printer"
	TypeMonitor    = "monitor"

	TypeKeyboard       = "teclado"
	TypeMouse          = "mouse"
	TypeMousepad       = "mousepad"
	TypeStand          = "soporte"
	TypeMemoryAdapter  = "adaptador-memoria"
	TypeNetworkAdapter = "adaptador-red"
	TypeHub            = "hub"
	TypeLaptopCharger  = "cargador-laptop"
	TypeCellCharger    = "cargador-celular"
	TypeChargingCable  = "cable-carga"
)

// Category is one accessory category eligible for cross-linking to a parent
// asset. Type is the inventory type tag of the accessory units; Stem is the
// camel-case stem used to build the link attribute keys.
type Category struct {
	Type string
	Stem string
}

// HasKey returns the boolean "owns one of these" attribute key.
func (c Category) HasKey() string { return "has" + c.Stem }

// RadioKey returns the create-new / select-existing radio attribute key.
func (c Category) RadioKey() string { return "has" + c.Stem + "Radio" }

// SelectedKey returns the attribute key holding the linked unit's id.
func (c Category) SelectedKey() string { return "selected" + c.Stem + "Id" }

// Categories lists every accessory category, in render order.
var Categories = []Category{
	{Type: TypeMouse, Stem: "Mouse"},
	{Type: TypeKeyboard, Stem: "Keyboard"},
	{Type: TypeMonitor, Stem: "Monitor"},
	{Type: TypeStand, Stem: "Stand"},
	{Type: TypeMemoryAdapter, Stem: "MemoryAdapter"},
	{Type: TypeNetworkAdapter, Stem: "NetworkAdapter"},
	{Type: TypeHub, Stem: "Hub"},
	{Type: TypeMousepad, Stem: "Mousepad"},
	{Type: TypeLaptopCharger, Stem: "LaptopCharger"},
	{Type: TypeCellCharger, Stem: "CellCharger"},
	{Type: TypeChargingCable, Stem: "ChargingCable"},
}

// CategoryByType looks up an accessory category by its asset type tag.
func CategoryByType(assetType string) (Category, bool) {
	for _, c := range Categories {
		if c.Type == assetType {
			return c, true
		}
	}
	return Category{}, false
}

// CategoriesFor returns the accessory categories whose link blocks appear
// in the given parent type's schema.
func CategoriesFor(parentType string) []Category {
	var out []Category
	fields := fieldTable[parentType]
	for _, c := range Categories {
		for _, f := range fields {
			if f.Key == c.HasKey() {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func mustCategory(assetType string) Category {
	c, ok := CategoryByType(assetType)
	if !ok {
		panic(fmt.Sprintf("schema: %q is not an accessory category", assetType))
	}
	return c
}
