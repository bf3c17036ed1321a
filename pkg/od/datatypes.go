// Package od implements the in-memory CANopen object dictionary model that
// the candb config compiler builds from YAML card configs and that the
// generators consume.
package od

import "fmt"

// DataType is a CANopen data type code (CiA 301 object 0x0001-0x001B).
type DataType uint8

const (
	Boolean       DataType = 0x01
	Integer8      DataType = 0x02
	Integer16     DataType = 0x03
	Integer32     DataType = 0x04
	Unsigned8     DataType = 0x05
	Unsigned16    DataType = 0x06
	Unsigned32    DataType = 0x07
	Real32        DataType = 0x08
	VisibleString DataType = 0x09
	OctetString   DataType = 0x0A
	UnicodeString DataType = 0x0B
	Domain        DataType = 0x0F
	Real64        DataType = 0x11
	Integer64     DataType = 0x15
	Unsigned64    DataType = 0x1B
)

// dataTypeInfo holds the static properties of a data type.
type dataTypeInfo struct {
	name    string
	bits    int // 0 for dynamic length types
	signed  bool
	dynamic bool
	def     any // zero value used when a config gives no default
}

var dataTypes = map[DataType]dataTypeInfo{
	Boolean:       {"bool", 8, false, false, false},
	Integer8:      {"int8", 8, true, false, int64(0)},
	Integer16:     {"int16", 16, true, false, int64(0)},
	Integer32:     {"int32", 32, true, false, int64(0)},
	Integer64:     {"int64", 64, true, false, int64(0)},
	Unsigned8:     {"uint8", 8, false, false, uint64(0)},
	Unsigned16:    {"uint16", 16, false, false, uint64(0)},
	Unsigned32:    {"uint32", 32, false, false, uint64(0)},
	Unsigned64:    {"uint64", 64, false, false, uint64(0)},
	Real32:        {"float32", 32, false, false, float64(0)},
	Real64:        {"float64", 64, false, false, float64(0)},
	VisibleString: {"str", 0, false, true, ""},
	OctetString:   {"octet_str", 0, false, true, []byte{}},
	Domain:        {"domain", 0, false, true, nil},
}

var dataTypeNames = map[string]DataType{}

func init() {
	for dt, info := range dataTypes {
		dataTypeNames[info.name] = dt
	}
}

// ParseDataType converts a config data type name ("uint16", "octet_str", ...)
// to its CANopen code.
func ParseDataType(name string) (DataType, error) {
	dt, ok := dataTypeNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown data type %q", name)
	}
	return dt, nil
}

// String returns the config name of the data type.
func (dt DataType) String() string {
	if info, ok := dataTypes[dt]; ok {
		return info.name
	}
	return fmt.Sprintf("DataType(0x%02X)", uint8(dt))
}

// BitSize returns the fixed size of the data type in bits, or 0 for
// dynamic length types (str, octet_str, domain).
func (dt DataType) BitSize() int { return dataTypes[dt].bits }

// Signed reports whether the data type is a signed integer.
func (dt DataType) Signed() bool { return dataTypes[dt].signed }

// DynamicLength reports whether values of this type have no fixed size.
// Dynamic length types are not PDO mappable.
func (dt DataType) DynamicLength() bool { return dataTypes[dt].dynamic }

// Integer reports whether the data type is an integer (signed or unsigned).
func (dt DataType) Integer() bool {
	switch dt {
	case Integer8, Integer16, Integer32, Integer64,
		Unsigned8, Unsigned16, Unsigned32, Unsigned64:
		return true
	}
	return false
}

// Float reports whether the data type is a floating point type.
func (dt DataType) Float() bool { return dt == Real32 || dt == Real64 }

// Zero returns the default value used when a config entry has no default.
func (dt DataType) Zero() any { return dataTypes[dt].def }

// Bounds returns the representable range of an integer data type.
// ok is false for non-integer types.
func (dt DataType) Bounds() (min int64, max uint64, ok bool) {
	info, found := dataTypes[dt]
	if !found || !dt.Integer() {
		return 0, 0, false
	}
	if info.signed {
		return -1 << (info.bits - 1), 1<<(info.bits-1) - 1, true
	}
	if info.bits == 64 {
		return 0, ^uint64(0), true
	}
	return 0, 1<<info.bits - 1, true
}
