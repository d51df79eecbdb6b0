package schema

import "strings"

// codePrefixes holds the advisory asset-code prefix per type. Types not in
// the table have no configured prefix. Applied in create mode only; the
// server never enforces the convention.
var codePrefixes = map[string]string{
	TypeLaptop:        "LAPT - ",
	TypeServer:        "SERV - ",
	TypeSmartphone:    "CEL - ",
	TypeTablet:        "TAB - ",
	TypeIPPhone:       "TELIP - ",
	TypePrinter:       "IMP - ",
	TypeMonitor:       "MON - ",
	TypeLaptopCharger: "CARGL - ",
	TypeCellCharger:   "CARGC - ",
}

// CodePrefix returns the configured asset-code prefix for the type, or ""
// when the type has none.
func CodePrefix(assetType string) string {
	return codePrefixes[assetType]
}

// ApplyTypeChange re-computes the asset code after the type selection
// changes. A code is preserved only when it already starts with the new
// type's prefix; otherwise the prefix replaces it. Types without a prefix
// clear the code.
func ApplyTypeChange(currentCode, newType string) string {
	prefix := CodePrefix(newType)
	if prefix == "" {
		return ""
	}
	if strings.HasPrefix(currentCode, prefix) {
		return currentCode
	}
	return prefix
}
