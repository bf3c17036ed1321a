package gen

import (
	"fmt"
	"strings"

	"github.com/aurorasat/candb/pkg/od"
)

// ax25HeaderLen is the fixed AX.25 UI frame header preceding the beacon
// payload: two callsigns with SSIDs, control, and PID.
const ax25HeaderLen = 16

const crc32Len = 4

// BeaconDoc renders the beacon frame layout as a markdown table: the AX.25
// header, every payload field with its byte offset, and the trailing CRC32.
func BeaconDoc(mission string, revision int, c3 *od.ObjectDictionary, fields []*od.Variable) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Beacon Definition\n\n", mission)
	fmt.Fprintf(&b, "Revision: %d\n\n", revision)
	b.WriteString("| Offset | Card | Data Name | Data Type | Size | Description |\n")
	b.WriteString("|--------|------|-----------|-----------|------|-------------|\n")

	offset := 0
	fmt.Fprintf(&b, "| %d | c3 | ax25_header | octet_str | %d | AX.25 packet header |\n",
		offset, ax25HeaderLen)
	offset += ax25HeaderLen

	for _, v := range fields {
		card, name := beaconFieldName(c3, v)
		size := v.Size()
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s |\n",
			offset, card, name, v.DataType, size, v.Description)
		offset += size
	}

	fmt.Fprintf(&b, "| %d | c3 | crc32 | uint32 | %d | packet checksum |\n", offset, crc32Len)
	offset += crc32Len

	fmt.Fprintf(&b, "\nTotal length: %d\n", offset)
	return []byte(b.String())
}

// beaconFieldName attributes a beacon entry to a card: entries below 0x5000
// are the C3's own, entries in the mirror block belong to the card the
// mirror record is named after.
func beaconFieldName(c3 *od.ObjectDictionary, v *od.Variable) (card, name string) {
	parent := c3.Object(v.Index)
	if v.Index >= 0x5000 {
		return parent.ObjName(), v.Name
	}
	if _, isVar := parent.(*od.Variable); isVar {
		return "c3", v.Name
	}
	return "c3", parent.ObjName() + "_" + v.Name
}

// ODDoc renders one card's full object dictionary as a markdown table.
func ODDoc(nodeName string, dict *od.ObjectDictionary) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Object Dictionary\n\n", nodeName)
	fmt.Fprintf(&b, "Node ID: 0x%02X\n\n", dict.NodeID)
	b.WriteString("| Index | Subindex | Name | Data Type | Access | Unit | Description |\n")
	b.WriteString("|-------|----------|------|-----------|--------|------|-------------|\n")

	for _, index := range dict.Indices() {
		obj := dict.Object(index)
		if v, ok := obj.(*od.Variable); ok {
			writeODDocRow(&b, v)
			continue
		}
		for _, sub := range groupSubs(obj) {
			writeODDocRow(&b, sub)
		}
	}
	return []byte(b.String())
}

func writeODDocRow(b *strings.Builder, v *od.Variable) {
	fmt.Fprintf(b, "| 0x%04X | 0x%X | %s | %s | %s | %s | %s |\n",
		v.Index, v.Subindex, v.Name, v.DataType, v.Access, v.Unit, v.Description)
}
