package od

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Access is an entry's access rights from the SDO client's point of view.
type Access string

const (
	AccessRO    Access = "ro"
	AccessWO    Access = "wo"
	AccessRW    Access = "rw"
	AccessConst Access = "const"
)

// ParseAccess validates a config access type string.
func ParseAccess(s string) (Access, error) {
	switch Access(s) {
	case AccessRO, AccessWO, AccessRW, AccessConst:
		return Access(s), nil
	}
	return "", fmt.Errorf("unknown access type %q", s)
}

// Readable reports whether SDO reads are allowed.
func (a Access) Readable() bool { return a != AccessWO }

// Writable reports whether SDO writes are allowed.
func (a Access) Writable() bool { return a == AccessWO || a == AccessRW }

// Variable is a single addressable OD entry: either a standalone object or a
// subindex of a record or array.
//
// Default holds a normalized value: int64 for signed integers, uint64 for
// unsigned integers and booleans encoded by the builder, bool for booleans,
// float64 for reals, string for visible strings, and []byte for octet
// strings. Domain entries have a nil Default.
type Variable struct {
	Index       uint16
	Subindex    uint8
	Name        string
	Description string
	DataType    DataType
	Access      Access
	Default     any
	Unit        string
	Factor      float64
	LowLimit    *int64
	HighLimit   *int64

	// BitDefinitions names individual bits or bit spans of an integer
	// entry. ValueDescriptions names specific values (an enum).
	BitDefinitions    map[string][]int
	ValueDescriptions map[string]int64

	// PDOMappable is set for fixed-size entries that a PDO may carry.
	PDOMappable bool
}

// ObjIndex implements Object.
func (v *Variable) ObjIndex() uint16 { return v.Index }

// ObjName implements Object.
func (v *Variable) ObjName() string { return v.Name }

// Size returns the encoded size of the variable's default in bytes.
func (v *Variable) Size() int {
	switch v.DataType {
	case VisibleString:
		s, _ := v.Default.(string)
		return len(s)
	case OctetString:
		b, _ := v.Default.([]byte)
		return len(b)
	case Domain:
		return 0
	default:
		return v.DataType.BitSize() / 8
	}
}

// EncodeDefault encodes the variable's default value the way it appears on
// the wire: little-endian scalars, raw bytes for strings. Used to size and
// document beacon frame layouts.
func (v *Variable) EncodeDefault() ([]byte, error) {
	switch v.DataType {
	case VisibleString:
		s, ok := v.Default.(string)
		if !ok {
			return nil, fmt.Errorf("%s: default %T is not a string", v.Name, v.Default)
		}
		return []byte(s), nil
	case OctetString:
		b, ok := v.Default.([]byte)
		if !ok {
			return nil, fmt.Errorf("%s: default %T is not bytes", v.Name, v.Default)
		}
		return b, nil
	case Domain:
		return nil, nil
	case Boolean:
		b, ok := v.Default.(bool)
		if !ok {
			return nil, fmt.Errorf("%s: default %T is not a bool", v.Name, v.Default)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case Real32:
		f, ok := v.Default.(float64)
		if !ok {
			return nil, fmt.Errorf("%s: default %T is not a float", v.Name, v.Default)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil
	case Real64:
		f, ok := v.Default.(float64)
		if !ok {
			return nil, fmt.Errorf("%s: default %T is not a float", v.Name, v.Default)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	}

	raw, err := v.defaultUint()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, raw)
	return buf[:v.DataType.BitSize()/8], nil
}

// DefaultUint64 returns the integer default as raw unsigned bits. Signed
// values are two's complement.
func (v *Variable) DefaultUint64() (uint64, error) { return v.defaultUint() }

func (v *Variable) defaultUint() (uint64, error) {
	switch d := v.Default.(type) {
	case int64:
		return uint64(d), nil
	case uint64:
		return d, nil
	case int:
		return uint64(d), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s: default %T is not an integer", v.Name, v.Default)
	}
}
