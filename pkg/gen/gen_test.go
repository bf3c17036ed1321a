package gen

import (
	"testing"

	"github.com/aurorasat/candb/pkg/od"
)

// testDict builds a small but representative card OD: a standard object, a
// TPDO pair, a readings record with an enum and a bit field, a mirrored data
// record, and a string version entry.
func testDict(t *testing.T) *od.ObjectDictionary {
	t.Helper()

	dict := od.New()
	dict.NodeID = 0x04
	dict.Bitrate = 1_000_000
	dict.DeviceInfo = od.DeviceInfo{
		VendorName:  "AuroraSat",
		ProductName: "test card",
		Granularity: 8,
		BaudRates:   []int{1000},
		NrOfTPDO:    1,
	}

	mustAdd := func(obj od.Object) {
		t.Helper()
		if err := dict.Add(obj); err != nil {
			t.Fatal(err)
		}
	}
	mustSub := func(rec *od.Record, v *od.Variable) {
		t.Helper()
		if err := rec.AddMember(v); err != nil {
			t.Fatal(err)
		}
	}

	mustAdd(&od.Variable{
		Index: 0x1000, Name: "device_type", DataType: od.Unsigned32,
		Access: od.AccessRO, Default: uint64(0),
	})

	comm := od.NewRecord("test_card_1_communication_parameters", 0x1800)
	mustSub(comm, &od.Variable{
		Subindex: 0x1, Name: "cob_id", DataType: od.Unsigned32,
		Access: od.AccessConst, Default: uint64(0x184),
	})
	mustSub(comm, &od.Variable{
		Subindex: 0x2, Name: "transmission_type", DataType: od.Unsigned8,
		Access: od.AccessConst, Default: uint64(254),
	})
	comm.Sub(0).Default = uint64(0x6)
	mustAdd(comm)

	mapping := od.NewRecord("test_card_1_mapping_parameters", 0x1A00)
	mustSub(mapping, &od.Variable{
		Subindex: 0x1, Name: "mapped_object_1", DataType: od.Unsigned32,
		Access: od.AccessConst, Default: uint64(0x4000<<16 | 0x1<<8 | 16),
	})
	mustAdd(mapping)

	readings := od.NewRecord("readings", 0x4000)
	readings.Description = "analog readings"
	mustSub(readings, &od.Variable{
		Subindex: 0x1, Name: "vbatt", DataType: od.Unsigned16,
		Access: od.AccessRO, Default: uint64(3200), Unit: "mV", PDOMappable: true,
	})
	mustSub(readings, &od.Variable{
		Subindex: 0x2, Name: "state", DataType: od.Unsigned8,
		Access: od.AccessRO, Default: uint64(0), PDOMappable: true,
		ValueDescriptions: map[string]int64{"off": 0, "on": 1, "fault": 2},
	})
	mustSub(readings, &od.Variable{
		Subindex: 0x3, Name: "flags", DataType: od.Unsigned8,
		Access: od.AccessRO, Default: uint64(0), PDOMappable: true,
		BitDefinitions: map[string][]int{"overcurrent": {7}, "charging": {0, 1}},
	})
	mustAdd(readings)

	mirror := od.NewRecord("other_card", 0x5008)
	mustSub(mirror, &od.Variable{
		Subindex: 0x1, Name: "sensor_temperature", DataType: od.Integer8,
		Access: od.AccessRW, Default: int64(0), PDOMappable: true,
	})
	mustAdd(mirror)

	mustAdd(&od.Variable{
		Index: 0x3000, Name: "hw_version", DataType: od.VisibleString,
		Access: od.AccessRO, Default: "0.1",
	})

	return dict
}
