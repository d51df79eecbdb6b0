package schema

import (
	"fmt"
	"sort"
	"strings"

	"asset-inventory-api/internal/model"
)

// FieldKind classifies how a typed attribute is rendered and validated.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindEnum   FieldKind = "enum"
	KindList   FieldKind = "list"
)

// Gate makes a field applicable only when another attribute holds a given
// value. A nil Value means the gate key must be boolean true.
type Gate struct {
	Key   string
	Value interface{}
}

// FieldDescriptor describes one typed attribute of an asset type.
type FieldDescriptor struct {
	Key      string
	Kind     FieldKind
	Enum     []string
	Unit     string
	Gate     *Gate
	Required bool
}

// Field constructor shorthands used by the type tables below.

func text(key string) FieldDescriptor   { return FieldDescriptor{Key: key, Kind: KindText} }
func boolF(key string) FieldDescriptor  { return FieldDescriptor{Key: key, Kind: KindBool} }
func number(key, unit string) FieldDescriptor {
	return FieldDescriptor{Key: key, Kind: KindNumber, Unit: unit}
}
func enum(key string, values ...string) FieldDescriptor {
	return FieldDescriptor{Key: key, Kind: KindEnum, Enum: values}
}

func gated(f FieldDescriptor, key string, value interface{}) FieldDescriptor {
	f.Gate = &Gate{Key: key, Value: value}
	return f
}

// accessoryBlock expands one accessory category into its three link keys:
// the has-flag, the create-or-select radio and the selected unit id.
func accessoryBlock(c Category) []FieldDescriptor {
	return []FieldDescriptor{
		boolF(c.HasKey()),
		gated(enum(c.RadioKey(), RadioCreateNew, RadioSelectExisting), c.HasKey(), nil),
		gated(text(c.SelectedKey()), c.HasKey(), nil),
	}
}

// Radio values for accessory link blocks.
const (
	RadioCreateNew      = "yes"
	RadioSelectExisting = "no"
)

func computerFields() []FieldDescriptor {
	fields := []FieldDescriptor{
		text("cpu"),
		number("ram", "GB"),
		text("storage"),
		boolF("hasBag"),
	}
	for _, tag := range []string{
		TypeMouse, TypeKeyboard, TypeMonitor, TypeStand, TypeMemoryAdapter,
		TypeNetworkAdapter, TypeHub, TypeMousepad, TypeLaptopCharger,
	} {
		fields = append(fields, accessoryBlock(mustCategory(tag))...)
	}
	return fields
}

func mobileFields() []FieldDescriptor {
	fields := []FieldDescriptor{
		{Key: "imeis", Kind: KindList, Required: true},
		text("cpu"),
		number("ram", "GB"),
		text("phoneNumber"),
		boolF("hasMicas"),
		boolF("hasCase"),
		boolF("hasChip"),
		gated(text("operator"), "hasChip", nil),
		gated(text("chipNumber"), "hasChip", nil),
	}
	for _, tag := range []string{TypeCellCharger, TypeChargingCable} {
		fields = append(fields, accessoryBlock(mustCategory(tag))...)
	}
	return fields
}

// fieldTable maps every asset type to its attribute field set. The set is a
// pure function of the type tag; nothing else feeds into it.
var fieldTable = map[string][]FieldDescriptor{
	TypeLaptop: computerFields(),
	TypeServer: computerFields(),

	TypeSmartphone: mobileFields(),
	TypeTablet:     mobileFields(),

	TypeIPPhone: {
		text("extension"),
		text("phoneNumber"),
	},

	TypePrinter: {
		enum("printerType", "none", "laser", "inkjet", "dot-matrix", "thermal"),
		boolF("isColor"),
		enum("connectivity", "none", "usb", "wifi", "ethernet", "bluetooth"),
		number("printSpeed", "ppm"),
		boolF("hasScanner"),
		boolF("hasFax"),
	},

	TypeMonitor: {
		number("screenSize", "inches"),
		text("resolution"),
		text("panelType"),
		boolF("hasHDMI"),
		boolF("hasVGA"),
		boolF("hasPowerCable"),
	},

	TypeKeyboard: {
		enum("connectionType", "none", "USB", "Bluetooth", "Wireless", "Wired"),
		text("color"),
		boolF("hasBatteries"),
	},

	TypeMouse: {
		text("color"),
		boolF("isWireless"),
		gated(enum("batteryType", "interna", "externa"), "isWireless", nil),
		gated(boolF("hasChargeCable"), "batteryType", "interna"),
		gated(boolF("hasBatteryIncluded"), "batteryType", "externa"),
	},

	TypeMousepad: {
		text("color"),
	},

	TypeStand: {
		text("color"),
		text("material"),
	},

	TypeMemoryAdapter: {
		text("color"),
		enum("connectionType", "none", "USB-A", "USB-C"),
	},

	TypeNetworkAdapter: {
		text("color"),
		enum("connectionType", "none", "USB-A", "USB-C", "RJ45"),
	},

	TypeHub: {
		text("model"),
		enum("connectionType", "none", "USB-A", "USB-C"),
		number("portCount", ""),
	},

	TypeLaptopCharger: {
		text("color"),
		number("wattage", "W"),
		text("connectorType"),
	},

	TypeCellCharger: {
		text("color"),
		number("wattage", "W"),
		text("connectorType"),
	},

	TypeChargingCable: {
		text("color"),
		number("length", "cm"),
		text("connectorType"),
	},
}

// KnownType reports whether the given tag is a recognized asset type.
func KnownType(assetType string) bool {
	_, ok := fieldTable[assetType]
	return ok
}

// AllTypes returns the recognized asset type tags, sorted.
func AllTypes() []string {
	types := make([]string, 0, len(fieldTable))
	for t := range fieldTable {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// FieldsFor returns the attribute field descriptors for the given asset
// type. The result depends on the type tag alone. Unknown types get an
// empty set.
func FieldsFor(assetType string) []FieldDescriptor {
	fields, ok := fieldTable[assetType]
	if !ok {
		return nil
	}
	out := make([]FieldDescriptor, len(fields))
	copy(out, fields)
	return out
}

// IsPhoneType reports whether assets of this type carry a phone number that
// must be unique across the inventory.
func IsPhoneType(assetType string) bool {
	switch assetType {
	case TypeSmartphone, TypeTablet, TypeIPPhone:
		return true
	}
	return false
}

// gateSatisfied checks a field's gate against already-cleaned attributes.
func gateSatisfied(gate *Gate, attrs model.AttributeMap) bool {
	if gate == nil {
		return true
	}
	v, ok := attrs[gate.Key]
	if !ok {
		return false
	}
	if gate.Value == nil {
		b, isBool := v.(bool)
		return isBool && b
	}
	return v == gate.Value
}

// CleanAttributes filters and validates a candidate attribute map against
// the schema of the given asset type. Keys outside the schema are dropped,
// as are gated fields whose gate does not hold. Kind and enum violations,
// and a missing/empty imeis list where one is required, are reported as
// validation messages; a non-empty message list means the map must not be
// written.
func CleanAttributes(assetType string, attrs model.AttributeMap) (model.AttributeMap, []string) {
	var errs []string
	cleaned := model.AttributeMap{}

	fields := fieldTable[assetType]
	if fields == nil {
		if len(attrs) > 0 {
			errs = append(errs, fmt.Sprintf("asset type %q does not accept attributes", assetType))
		}
		return cleaned, errs
	}

	// Fields are declared gate-key-first, so gates can be evaluated against
	// the cleaned map as it is built.
	for _, field := range fields {
		value, present := attrs[field.Key]
		if !present {
			if field.Required {
				errs = append(errs, fmt.Sprintf("%s is required", field.Key))
			}
			continue
		}
		if !gateSatisfied(field.Gate, cleaned) {
			continue
		}

		cleanedValue, err := cleanValue(field, value)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		cleaned[field.Key] = cleanedValue
	}

	return cleaned, errs
}

func cleanValue(field FieldDescriptor, value interface{}) (interface{}, error) {
	switch field.Kind {
	case KindText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", field.Key)
		}
		return s, nil

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean", field.Key)
		}
		return b, nil

	case KindNumber:
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("%s must be a number", field.Key)

	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", field.Key)
		}
		for _, allowed := range field.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%s must be one of: %s", field.Key, strings.Join(field.Enum, ", "))

	case KindList:
		items, err := stringList(value)
		if err != nil {
			return nil, fmt.Errorf("%s %v", field.Key, err)
		}
		if field.Required && len(items) == 0 {
			return nil, fmt.Errorf("%s must contain at least one entry", field.Key)
		}
		return items, nil
	}

	return nil, fmt.Errorf("%s has unsupported kind %s", field.Key, field.Kind)
}

// stringList coerces a decoded JSON array into its non-empty string entries.
func stringList(value interface{}) ([]string, error) {
	var out []string
	appendItem := func(item interface{}) error {
		s, ok := item.(string)
		if !ok {
			return fmt.Errorf("must be a list of strings")
		}
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
		return nil
	}

	switch list := value.(type) {
	case []string:
		for _, item := range list {
			if err := appendItem(item); err != nil {
				return nil, err
			}
		}
	case []interface{}:
		for _, item := range list {
			if err := appendItem(item); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("must be a list of strings")
	}
	return out, nil
}
