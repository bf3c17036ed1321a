package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aurorasat/candb/pkg/od"
)

// CANopenNode OD.[ch] generation for STM32 firmware cards. The output
// matches the OD interface of CANopenNode v4.

const (
	indent4  = "    "
	indent8  = "        "
	indent12 = "            "
)

// CANopenNode sets the data pointer of these to NULL, so no RAM is emitted
// for them.
var skipIndexes = map[uint16]bool{0x1F81: true, 0x1F82: true, 0x1F89: true}

var cTypes = map[od.DataType]string{
	od.Boolean:       "bool_t",
	od.Integer8:      "int8_t",
	od.Integer16:     "int16_t",
	od.Integer32:     "int32_t",
	od.Integer64:     "int64_t",
	od.Unsigned8:     "uint8_t",
	od.Unsigned16:    "uint16_t",
	od.Unsigned32:    "uint32_t",
	od.Unsigned64:    "uint64_t",
	od.Real32:        "float",
	od.Real64:        "double",
	od.VisibleString: "char",
	od.OctetString:   "uint8_t",
}

// CANopenNodeC renders the OD.c file for a card's OD.
func CANopenNodeC(dict *od.ObjectDictionary) []byte {
	var lines []string

	lines = append(lines,
		"#define OD_DEFINITION",
		`#include "301/CO_ODinterface.h"`,
		`#include "OD.h"`,
		"",
		"#if CO_VERSION_MAJOR < 4",
		"#error This file is only compatible with CANopenNode v4 and above",
		"#endif",
		"",
		"OD_ATTR_RAM OD_RAM_t OD_RAM = {",
	)
	for _, index := range dict.Indices() {
		lines = append(lines, attrLines(dict, dict.Object(index))...)
	}
	lines = append(lines, "};", "", "typedef struct {")

	for _, index := range dict.Indices() {
		obj := dict.Object(index)
		switch o := obj.(type) {
		case *od.Variable:
			lines = append(lines, fmt.Sprintf("%sOD_obj_var_t o_%X_%s;", indent4, index, o.Name))
		case *od.Array:
			lines = append(lines, fmt.Sprintf("%sOD_obj_array_t o_%X_%s;", indent4, index, o.Name))
		case *od.Record:
			lines = append(lines, fmt.Sprintf("%sOD_obj_record_t o_%X_%s[%d];", indent4, index, o.Name, o.Len()))
		}
	}
	lines = append(lines, "} ODObjs_t;", "", "static CO_PROGMEM ODObjs_t ODObjs = {")

	for _, index := range dict.Indices() {
		lines = append(lines, objLines(dict, dict.Object(index))...)
	}
	lines = append(lines, "};", "", "static OD_ATTR_OD OD_entry_t ODList[] = {")

	for _, index := range dict.Indices() {
		obj := dict.Object(index)
		var length int
		var objType string
		switch o := obj.(type) {
		case *od.Variable:
			length, objType = 1, "ODT_VAR"
		case *od.Array:
			length, objType = o.Len(), "ODT_ARR"
		case *od.Record:
			length, objType = o.Len(), "ODT_REC"
		}
		lines = append(lines, fmt.Sprintf("%s{0x%X, 0x%02X, %s, &ODObjs.o_%X_%s, NULL},",
			indent4, index, length, objType, index, obj.ObjName()))
	}
	lines = append(lines,
		indent4+"{0x0000, 0x00, 0, NULL, NULL}",
		"};",
		"",
		"static OD_t _OD = {",
		indent4+"(sizeof(ODList) / sizeof(ODList[0])) - 1,",
		indent4+"&ODList[0]",
		"};",
		"",
		"OD_t *OD = &_OD;",
	)

	return []byte(strings.Join(lines, "\n") + "\n")
}

// CANopenNodeH renders the OD.h file for a card's OD.
func CANopenNodeH(dict *od.ObjectDictionary) []byte {
	var lines []string

	lines = append(lines,
		"#ifndef OD_H",
		"#define OD_H",
		"",
		"#include <assert.h>",
		"",
		"#define OD_CNT_NMT 1",
		"#define OD_CNT_HB_PROD 1",
		fmt.Sprintf("#define OD_CNT_HB_CONS %d", boolBit(dict.Contains(0x1016))),
		"#define OD_CNT_EM 1",
		"#define OD_CNT_EM_PROD 1",
		fmt.Sprintf("#define OD_CNT_SDO_SRV %d", boolBit(dict.Contains(0x1200))),
		fmt.Sprintf("#define OD_CNT_SDO_CLI %d", boolBit(dict.Contains(0x1280))),
		fmt.Sprintf("#define OD_CNT_TIME %d", boolBit(dict.Contains(0x1012))),
		fmt.Sprintf("#define OD_CNT_SYNC %d", boolBit(dict.Contains(0x1005) && dict.Contains(0x1006))),
		fmt.Sprintf("#define OD_CNT_RPDO %d", dict.DeviceInfo.NrOfRPDO),
		fmt.Sprintf("#define OD_CNT_TPDO %d", dict.DeviceInfo.NrOfTPDO),
		"",
	)

	for _, index := range dict.Indices() {
		if arr, ok := dict.Object(index).(*od.Array); ok {
			lines = append(lines, fmt.Sprintf("#define OD_CNT_ARR_%X %d", index, arr.Len()-1))
		}
	}
	lines = append(lines, "", "typedef struct {")

	for _, index := range dict.Indices() {
		lines = append(lines, ramStructLines(dict.Object(index))...)
	}
	lines = append(lines,
		"} OD_RAM_t;",
		"",
		"#ifndef OD_ATTR_RAM",
		"#define OD_ATTR_RAM",
		"#endif",
		"extern OD_ATTR_RAM OD_RAM_t OD_RAM;",
		"",
		"#ifndef OD_ATTR_OD",
		"#define OD_ATTR_OD",
		"#endif",
		"extern OD_ATTR_OD OD_t *OD;",
		"",
	)

	for i, index := range dict.Indices() {
		lines = append(lines, fmt.Sprintf("#define OD_ENTRY_H%X &OD->list[%d]", index, i))
	}
	lines = append(lines, "")
	for i, index := range dict.Indices() {
		name := strings.ToUpper(dict.Object(index).ObjName())
		lines = append(lines, fmt.Sprintf("#define OD_ENTRY_H%X_%s &OD->list[%d]", index, name, i))
	}
	lines = append(lines, "")

	// index and subindex defines for common, card, and mirrored objects
	for _, index := range dict.Indices() {
		if index < 0x2000 {
			continue
		}
		obj := dict.Object(index)
		name := obj.ObjName()
		lines = append(lines, fmt.Sprintf("#define OD_INDEX_%s 0x%X", strings.ToUpper(name), index))
		for _, sub := range groupSubs(obj) {
			if sub.Subindex == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("#define OD_SUBINDEX_%s 0x%X",
				strings.ToUpper(name+"_"+sub.Name), sub.Subindex))
		}
		lines = append(lines, "")
	}

	for _, index := range dict.Indices() {
		for _, v := range enumCandidates(dict.Object(index)) {
			lines = append(lines, enumLines(dict.Object(index), v)...)
		}
	}
	for _, index := range dict.Indices() {
		for _, v := range enumCandidates(dict.Object(index)) {
			lines = append(lines, bitfieldLines(dict.Object(index), v)...)
		}
	}

	lines = append(lines, "#endif /* OD_H */")
	return []byte(strings.Join(lines, "\n") + "\n")
}

// StripNodeIDs rewrites default COB-IDs that embed the card's node id back
// to their base values, the form CANopenNode expects before it applies the
// runtime node id. Mirrored PDOs carry other cards' COB-IDs and are left
// alone.
func StripNodeIDs(dict *od.ObjectDictionary) {
	if v, err := dict.EntryAt(0x1014, 0); err == nil {
		v.Default = uint64(0x80)
	}

	ownCobIDs := map[uint64]bool{}
	for i := 0; i < 16; i++ {
		tpdo := uint64(0x180 + 0x100*(i%4) + i/4 + int(dict.NodeID))
		ownCobIDs[tpdo] = true
		ownCobIDs[tpdo+0x80] = true
	}

	strip := func(start, end uint16) {
		for _, index := range dict.Indices() {
			if index < start || index >= end {
				continue
			}
			v, err := dict.EntryAt(index, 1)
			if err != nil {
				continue
			}
			cobID, err := v.DefaultUint64()
			if err != nil || !ownCobIDs[cobID&0x7FF] {
				continue
			}
			base := (cobID - uint64(dict.NodeID)) & 0xFFC
			base |= cobID & 0xC0000000 // keep the PDO flag bits
			v.Default = base
		}
	}
	strip(0x1400, 0x1600)
	strip(0x1800, 0x1A00)
}

func groupSubs(obj od.Object) []*od.Variable {
	switch o := obj.(type) {
	case *od.Record:
		return o.Subs()
	case *od.Array:
		return o.Subs()
	}
	return nil
}

// enumCandidates picks the entries whose value and bit definitions become
// enums and bitfield unions: the variable itself, a record's members, or an
// array's first member.
func enumCandidates(obj od.Object) []*od.Variable {
	switch o := obj.(type) {
	case *od.Variable:
		return []*od.Variable{o}
	case *od.Array:
		for _, sub := range o.Subs() {
			if sub.Subindex != 0 {
				return []*od.Variable{sub}
			}
		}
		return nil
	case *od.Record:
		var subs []*od.Variable
		for _, sub := range o.Subs() {
			subs = append(subs, sub)
		}
		return subs
	}
	return nil
}

func attrLines(dict *od.ObjectDictionary, obj od.Object) []string {
	var lines []string
	index := obj.ObjIndex()

	switch o := obj.(type) {
	case *od.Variable:
		if o.DataType == od.Domain || skipIndexes[index] {
			return nil
		}
		lines = append(lines, fmt.Sprintf("%s.x%X_%s = %s,", indent4, index, o.Name, cValue(o)))
	case *od.Array:
		subs := o.Subs()
		lines = append(lines, fmt.Sprintf("%s.x%X_%s_sub0 = %s,", indent4, index, o.Name, cValue(subs[0])))
		if len(subs) < 2 || subs[1].DataType == od.Domain || skipIndexes[index] {
			return lines
		}
		var values []string
		for _, sub := range subs[1:] {
			values = append(values, cValue(sub))
		}
		lines = append(lines, fmt.Sprintf("%s.x%X_%s = {%s},", indent4, index, o.Name, strings.Join(values, ", ")))
	case *od.Record:
		lines = append(lines, fmt.Sprintf("%s.x%X_%s = {", indent4, index, o.Name))
		for _, sub := range o.Subs() {
			if sub.DataType == od.Domain {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s.%s = %s,", indent8, sub.Name, cValue(sub)))
		}
		lines = append(lines, indent4+"},")
	}
	return lines
}

func objLines(dict *od.ObjectDictionary, obj od.Object) []string {
	index := obj.ObjIndex()
	lines := []string{fmt.Sprintf("%s.o_%X_%s = {", indent4, index, obj.ObjName())}

	switch o := obj.(type) {
	case *od.Variable:
		switch {
		case skipIndexes[index] || o.DataType == od.Domain:
			lines = append(lines, indent8+".dataOrig = NULL,")
		case o.DataType.DynamicLength():
			lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s[0],", indent8, index, o.Name))
		default:
			lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s,", indent8, index, o.Name))
		}
		lines = append(lines,
			fmt.Sprintf("%s.attribute = %s,", indent8, attrFlags(o)),
			fmt.Sprintf("%s.dataLength = %d", indent8, cDataLen(o)))
	case *od.Array:
		lines = append(lines, fmt.Sprintf("%s.dataOrig0 = &OD_RAM.x%X_%s_sub0,", indent8, index, o.Name))
		if o.Len() < 2 {
			// node id generated array built without a roster
			lines = append(lines,
				indent8+".dataOrig = NULL,",
				indent8+".attribute0 = ODA_SDO_R,",
				indent8+".attribute = ODA_SDO_R,",
				indent8+".dataElementLength = 0,",
				indent8+".dataElementSizeof = 0,",
				indent4+"},")
			return lines
		}
		first := o.Subs()[1]
		switch {
		case skipIndexes[index] || first.DataType == od.Domain:
			lines = append(lines, indent8+".dataOrig = NULL,")
		case first.DataType.DynamicLength():
			lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s[0][0],", indent8, index, o.Name))
		default:
			lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s[0],", indent8, index, o.Name))
		}
		lines = append(lines,
			indent8+".attribute0 = ODA_SDO_R,",
			fmt.Sprintf("%s.attribute = %s,", indent8, attrFlags(first)),
			fmt.Sprintf("%s.dataElementLength = %d,", indent8, cDataLen(first)))
		switch {
		case first.DataType == od.Domain:
			lines = append(lines, indent8+".dataElementSizeof = 0,")
		case first.DataType.DynamicLength():
			lines = append(lines, fmt.Sprintf("%s.dataElementSizeof = sizeof(%s[%d]),",
				indent8, cTypes[first.DataType], cElementLen(first)))
		default:
			lines = append(lines, fmt.Sprintf("%s.dataElementSizeof = sizeof(%s),",
				indent8, cTypes[first.DataType]))
		}
	case *od.Record:
		for _, sub := range o.Subs() {
			lines = append(lines, indent8+"{")
			switch {
			case sub.DataType == od.Domain:
				lines = append(lines, indent12+".dataOrig = NULL,")
			case sub.DataType.DynamicLength():
				lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s.%s[0],",
					indent12, index, o.Name, sub.Name))
			default:
				lines = append(lines, fmt.Sprintf("%s.dataOrig = &OD_RAM.x%X_%s.%s,",
					indent12, index, o.Name, sub.Name))
			}
			lines = append(lines,
				fmt.Sprintf("%s.subIndex = %d,", indent12, sub.Subindex),
				fmt.Sprintf("%s.attribute = %s,", indent12, attrFlags(sub)),
				fmt.Sprintf("%s.dataLength = %d", indent12, cDataLen(sub)),
				indent8+"},")
		}
	}

	lines = append(lines, indent4+"},")
	return lines
}

func ramStructLines(obj od.Object) []string {
	var lines []string
	index := obj.ObjIndex()

	switch o := obj.(type) {
	case *od.Variable:
		if line, ok := ramVarLine(indent4, fmt.Sprintf("x%X_%s", index, o.Name), o, ""); ok {
			lines = append(lines, line)
		}
	case *od.Array:
		lines = append(lines, fmt.Sprintf("%suint8_t x%X_%s_sub0;", indent4, index, o.Name))
		if o.Len() < 2 {
			return lines
		}
		first := o.Subs()[1]
		if first.DataType == od.Domain || skipIndexes[index] {
			return lines
		}
		count := fmt.Sprintf("OD_CNT_ARR_%X", index)
		if line, ok := ramVarLine(indent4, fmt.Sprintf("x%X_%s", index, o.Name), first, count); ok {
			lines = append(lines, line)
		}
	case *od.Record:
		lines = append(lines, indent4+"struct {")
		for _, sub := range o.Subs() {
			if line, ok := ramVarLine(indent8, sub.Name, sub, ""); ok {
				lines = append(lines, line)
			}
		}
		lines = append(lines, fmt.Sprintf("%s} x%X_%s;", indent4, index, o.Name))
	}
	return lines
}

// ramVarLine renders one OD_RAM_t member. count, when non-empty, is the
// array dimension macro for generated array members.
func ramVarLine(indent, name string, v *od.Variable, count string) (string, bool) {
	if v.DataType == od.Domain {
		return "", false
	}
	cType := cTypes[v.DataType]
	dims := ""
	if count != "" {
		dims = "[" + count + "]"
	}
	if v.DataType.DynamicLength() {
		return fmt.Sprintf("%s%s %s%s[%d];", indent, cType, name, dims, cElementLen(v)), true
	}
	return fmt.Sprintf("%s%s %s%s;", indent, cType, name, dims), true
}

// cElementLen is the C array dimension of a string or octet string member.
func cElementLen(v *od.Variable) int {
	switch d := v.Default.(type) {
	case string:
		return len(d) + 1 // '\0'
	case []byte:
		if len(d) == 0 {
			return 1
		}
		return len(d)
	}
	return 1
}

// cDataLen is the CANopenNode dataLength of an entry in bytes.
func cDataLen(v *od.Variable) int {
	switch {
	case v.DataType == od.Domain:
		return 0
	case v.DataType.DynamicLength():
		switch d := v.Default.(type) {
		case string:
			return len(d)
		case []byte:
			return len(d)
		}
		return 0
	default:
		return int(v.DataType.BitSize()) / 8
	}
}

func attrFlags(v *od.Variable) string {
	var attr string
	switch v.Access {
	case od.AccessRO, od.AccessConst:
		attr = "ODA_SDO_R"
		if v.PDOMappable {
			attr += " | ODA_TPDO"
		}
	case od.AccessWO:
		attr = "ODA_SDO_W"
		if v.PDOMappable {
			attr += " | ODA_RPDO"
		}
	default:
		attr = "ODA_SDO_RW"
		if v.PDOMappable {
			attr += " | ODA_TRPDO"
		}
	}

	switch {
	case v.DataType == od.VisibleString:
		attr += " | ODA_STR"
	case v.DataType == od.Domain || v.DataType == od.OctetString || v.DataType.BitSize() > 8:
		attr += " | ODA_MB"
	}
	return attr
}

// cValue renders an entry's default as a C initializer.
func cValue(v *od.Variable) string {
	switch d := v.Default.(type) {
	case nil:
		return "0"
	case bool:
		return fmt.Sprintf("%d", boolBit(d))
	case string:
		var chars []string
		for _, c := range d {
			chars = append(chars, fmt.Sprintf("'%c'", c))
		}
		chars = append(chars, "0")
		return "{" + strings.Join(chars, ", ") + "}"
	case []byte:
		if len(d) == 0 {
			return "{0}"
		}
		var bytes []string
		for _, b := range d {
			bytes = append(bytes, fmt.Sprintf("0x%02X", b))
		}
		return "{" + strings.Join(bytes, ", ") + "}"
	case int64:
		return fmt.Sprintf("%d", d)
	case uint64:
		return fmt.Sprintf("0x%X", d)
	case float64:
		return fmt.Sprintf("%v", d)
	default:
		return fmt.Sprintf("%v", d)
	}
}

func enumLines(parent od.Object, v *od.Variable) []string {
	if len(v.ValueDescriptions) == 0 {
		return nil
	}
	name := enumName(parent, v)

	type entry struct {
		name  string
		value int64
	}
	entries := make([]entry, 0, len(v.ValueDescriptions))
	for n, val := range v.ValueDescriptions {
		entries = append(entries, entry{n, val})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })

	lines := []string{fmt.Sprintf("enum %s_enum {", name)}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s%s_%s = %d,", indent4,
			strings.ToUpper(name), strings.ToUpper(e.name), e.value))
	}
	return append(lines, "};", "")
}

func bitfieldLines(parent od.Object, v *od.Variable) []string {
	if len(v.BitDefinitions) == 0 {
		return nil
	}
	name := enumName(parent, v)
	cType := cTypes[v.DataType]
	bitfieldName := name + "_bitfield"

	names := make([]string, 0, len(v.BitDefinitions))
	for n := range v.BitDefinitions {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return maxBit(v.BitDefinitions[names[i]]) < maxBit(v.BitDefinitions[names[j]])
	})

	lines := []string{
		fmt.Sprintf("union %s {", bitfieldName),
		fmt.Sprintf("%s%s value;", indent4, cType),
		indent4 + "struct __attribute((packed)) {",
	}

	totalBits := 0
	for _, n := range names {
		bits := v.BitDefinitions[n]
		if low := minBit(bits); totalBits < low {
			unused := low - totalBits
			lines = append(lines, fmt.Sprintf("%s%s unused%d : %d;", indent8, cType, totalBits, unused))
			totalBits += unused
		}
		lines = append(lines, fmt.Sprintf("%s%s %s : %d;", indent8, cType, strings.ToLower(n), len(bits)))
		totalBits += len(bits)
	}
	if size := int(v.DataType.BitSize()); totalBits < size {
		lines = append(lines, fmt.Sprintf("%s%s unused%d : %d;", indent8, cType, totalBits, size-totalBits))
	}

	lines = append(lines,
		indent4+"} fields;",
		"};",
		fmt.Sprintf(`static_assert(sizeof(union %s) == sizeof(%s), "pack size did not match value size");`,
			bitfieldName, cType),
		"")
	return lines
}

func enumName(parent od.Object, v *od.Variable) string {
	switch parent.(type) {
	case *od.Record:
		return parent.ObjName() + "_" + v.Name
	case *od.Array:
		return parent.ObjName()
	}
	return v.Name
}

func minBit(bits []int) int {
	low := bits[0]
	for _, b := range bits {
		if b < low {
			low = b
		}
	}
	return low
}

func maxBit(bits []int) int {
	high := bits[0]
	for _, b := range bits {
		if b > high {
			high = b
		}
	}
	return high
}
