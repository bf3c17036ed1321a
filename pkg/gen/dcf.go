package gen

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aurorasat/candb/pkg/od"
)

// CiA 306 object type codes.
const (
	objectTypeVar    = 0x7
	objectTypeArray  = 0x8
	objectTypeRecord = 0x9
)

// DCF renders a CiA 306 device configuration file for one card's OD.
func DCF(dict *od.ObjectDictionary, nodeName string, now time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "[FileInfo]\n")
	fmt.Fprintf(&b, "FileName=%s.dcf\n", nodeName)
	fmt.Fprintf(&b, "FileVersion=1\n")
	fmt.Fprintf(&b, "FileRevision=1\n")
	fmt.Fprintf(&b, "EDSVersion=4.0\n")
	fmt.Fprintf(&b, "Description=%s object dictionary\n", nodeName)
	fmt.Fprintf(&b, "CreationTime=%s\n", now.Format("03:04PM"))
	fmt.Fprintf(&b, "CreationDate=%s\n", now.Format("01-02-2006"))
	fmt.Fprintf(&b, "CreatedBy=candb\n")
	fmt.Fprintf(&b, "ModificationTime=%s\n", now.Format("03:04PM"))
	fmt.Fprintf(&b, "ModificationDate=%s\n", now.Format("01-02-2006"))
	fmt.Fprintf(&b, "ModifiedBy=candb\n\n")

	info := dict.DeviceInfo
	fmt.Fprintf(&b, "[DeviceInfo]\n")
	fmt.Fprintf(&b, "VendorName=%s\n", info.VendorName)
	fmt.Fprintf(&b, "VendorNumber=%d\n", info.VendorNumber)
	fmt.Fprintf(&b, "ProductName=%s\n", info.ProductName)
	fmt.Fprintf(&b, "ProductNumber=%d\n", info.ProductNumber)
	fmt.Fprintf(&b, "RevisionNumber=%d\n", info.RevisionNumber)
	fmt.Fprintf(&b, "OrderCode=%d\n", info.OrderCode)
	for _, rate := range []int{10, 20, 50, 125, 250, 500, 800, 1000} {
		fmt.Fprintf(&b, "BaudRate_%d=%d\n", rate, boolBit(containsInt(info.BaudRates, rate)))
	}
	fmt.Fprintf(&b, "SimpleBootUpMaster=0\n")
	fmt.Fprintf(&b, "SimpleBootUpSlave=0\n")
	fmt.Fprintf(&b, "Granularity=%d\n", info.Granularity)
	fmt.Fprintf(&b, "DynamicChannelsSupported=%d\n", boolBit(info.DynamicChannels))
	fmt.Fprintf(&b, "GroupMessaging=%d\n", boolBit(info.GroupMessaging))
	fmt.Fprintf(&b, "NrOfRXPDO=%d\n", info.NrOfRPDO)
	fmt.Fprintf(&b, "NrOfTXPDO=%d\n", info.NrOfTPDO)
	fmt.Fprintf(&b, "LSS_Supported=%d\n\n", boolBit(info.LSSSupported))

	fmt.Fprintf(&b, "[DeviceComissioning]\n")
	fmt.Fprintf(&b, "NodeID=0x%02X\n", dict.NodeID)
	fmt.Fprintf(&b, "NodeName=%s\n", nodeName)
	fmt.Fprintf(&b, "Baudrate=%d\n", dict.Bitrate/1000)
	fmt.Fprintf(&b, "NetNumber=0\n")
	fmt.Fprintf(&b, "NetworkName=\n")
	fmt.Fprintf(&b, "CANopenManager=0\n")
	fmt.Fprintf(&b, "LSS_SerialNumber=0\n\n")

	fmt.Fprintf(&b, "[DummyUsage]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "Dummy%04d=1\n", i)
	}
	fmt.Fprintf(&b, "\n[Comments]\nLines=0\n\n")

	var mandatory, optional, manufacturer []uint16
	for _, index := range dict.Indices() {
		switch {
		case index == 0x1000 || index == 0x1001 || index == 0x1018:
			mandatory = append(mandatory, index)
		case index >= 0x2000 && index <= 0x5FFF:
			manufacturer = append(manufacturer, index)
		default:
			optional = append(optional, index)
		}
	}
	writeObjectList(&b, "MandatoryObjects", mandatory)
	writeObjectList(&b, "OptionalObjects", optional)
	writeObjectList(&b, "ManufacturerObjects", manufacturer)

	for _, index := range dict.Indices() {
		writeObject(&b, dict.Object(index))
	}

	return []byte(b.String())
}

func writeObjectList(b *strings.Builder, section string, indices []uint16) {
	fmt.Fprintf(b, "[%s]\n", section)
	fmt.Fprintf(b, "SupportedObjects=%d\n", len(indices))
	for i, index := range indices {
		fmt.Fprintf(b, "%d=0x%04X\n", i+1, index)
	}
	b.WriteString("\n")
}

func writeObject(b *strings.Builder, obj od.Object) {
	switch o := obj.(type) {
	case *od.Variable:
		fmt.Fprintf(b, "[%04X]\n", o.Index)
		fmt.Fprintf(b, "ParameterName=%s\n", o.Name)
		fmt.Fprintf(b, "ObjectType=0x%X\n", objectTypeVar)
		writeVarBody(b, o)
	case *od.Record:
		writeGroup(b, o.Index, o.Name, objectTypeRecord, o.Subs())
	case *od.Array:
		writeGroup(b, o.Index, o.Name, objectTypeArray, o.Subs())
	}
}

func writeGroup(b *strings.Builder, index uint16, name string, objectType int, subs []*od.Variable) {
	fmt.Fprintf(b, "[%04X]\n", index)
	fmt.Fprintf(b, "ParameterName=%s\n", name)
	fmt.Fprintf(b, "ObjectType=0x%X\n", objectType)
	fmt.Fprintf(b, "SubNumber=%d\n\n", len(subs))
	for _, sub := range subs {
		fmt.Fprintf(b, "[%04Xsub%X]\n", index, sub.Subindex)
		fmt.Fprintf(b, "ParameterName=%s\n", sub.Name)
		fmt.Fprintf(b, "ObjectType=0x%X\n", objectTypeVar)
		writeVarBody(b, sub)
	}
}

func writeVarBody(b *strings.Builder, v *od.Variable) {
	fmt.Fprintf(b, "DataType=0x%04X\n", uint16(v.DataType))
	fmt.Fprintf(b, "AccessType=%s\n", v.Access)
	if v.LowLimit != nil {
		fmt.Fprintf(b, "LowLimit=%d\n", *v.LowLimit)
	}
	if v.HighLimit != nil {
		fmt.Fprintf(b, "HighLimit=%d\n", *v.HighLimit)
	}
	fmt.Fprintf(b, "DefaultValue=%s\n", formatDCFValue(v))
	fmt.Fprintf(b, "PDOMapping=%d\n\n", boolBit(v.PDOMappable))
}

func formatDCFValue(v *od.Variable) string {
	switch d := v.Default.(type) {
	case nil:
		return ""
	case bool:
		return strconv.Itoa(boolBit(d))
	case string:
		return d
	case []byte:
		return hex.EncodeToString(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case uint64:
		return fmt.Sprintf("0x%02X", d)
	case float64:
		return strconv.FormatFloat(d, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", d)
	}
}

func boolBit(v bool) int {
	if v {
		return 1
	}
	return 0
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
