package gen

import (
	"strings"
	"testing"

	"github.com/aurorasat/candb/pkg/od"
)

func TestCANopenNodeC(t *testing.T) {
	dict := testDict(t)
	out := string(CANopenNodeC(dict))

	for _, want := range []string{
		"#define OD_DEFINITION",
		"OD_ATTR_RAM OD_RAM_t OD_RAM = {",
		".x4000_readings = {",
		".vbatt = 3200,",
		"OD_obj_record_t o_4000_readings[4];",
		"OD_obj_var_t o_1000_device_type;",
		".dataOrig = &OD_RAM.x4000_readings.vbatt,",
		"{0x1000, 0x01, ODT_VAR, &ODObjs.o_1000_device_type, NULL},",
		"{0x4000, 0x04, ODT_REC, &ODObjs.o_4000_readings, NULL},",
		"{0x0000, 0x00, 0, NULL, NULL}",
		"OD_t *OD = &_OD;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("OD.c missing %q", want)
		}
	}

	// strings carry a terminator in RAM but not in dataLength
	if !strings.Contains(out, ".x3000_hw_version = {'0', '.', '1', 0},") {
		t.Error("string default should be a char initializer with terminator")
	}
}

func TestCANopenNodeH(t *testing.T) {
	dict := testDict(t)
	out := string(CANopenNodeH(dict))

	for _, want := range []string{
		"#define OD_CNT_TPDO 1",
		"#define OD_CNT_RPDO 0",
		"#define OD_CNT_NMT 1",
		"uint16_t vbatt;",
		"} x4000_readings;",
		"char x3000_hw_version[4];",
		"#define OD_ENTRY_H4000 &OD->list[",
		"#define OD_ENTRY_H4000_READINGS &OD->list[",
		"#define OD_INDEX_READINGS 0x4000",
		"#define OD_SUBINDEX_READINGS_VBATT 0x1",
		"#define OD_INDEX_OTHER_CARD 0x5008",
		"#endif /* OD_H */",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("OD.h missing %q", want)
		}
	}

	// enums are sorted by value
	off := strings.Index(out, "READINGS_STATE_OFF")
	on := strings.Index(out, "READINGS_STATE_ON")
	fault := strings.Index(out, "READINGS_STATE_FAULT")
	if off < 0 || on < 0 || fault < 0 {
		t.Fatalf("state enum missing: off=%d on=%d fault=%d", off, on, fault)
	}
	if !(off < on && on < fault) {
		t.Error("enum values not sorted by value")
	}

	// bitfields are packed into a union with filler bits
	if !strings.Contains(out, "union") {
		t.Error("flags bit definitions should emit a union")
	}
	if !strings.Contains(out, "static_assert") {
		t.Error("bitfield unions carry a size static_assert")
	}
}

func TestStripNodeIDs(t *testing.T) {
	dict := testDict(t)

	StripNodeIDs(dict)

	comm := dict.Object(0x1800).(*od.Record)
	cobID, err := comm.Sub(0x1).DefaultUint64()
	if err != nil {
		t.Fatal(err)
	}
	if cobID != 0x180 {
		t.Errorf("cob_id = 0x%X, want the node id stripped to 0x180", cobID)
	}
}

func TestCANopenNodeCEmptyGeneratedArray(t *testing.T) {
	dict := testDict(t)
	arr := od.NewArray("consumer_heartbeat_time", 0x1016)
	if err := dict.Add(arr); err != nil {
		t.Fatal(err)
	}

	out := string(CANopenNodeC(dict))
	if !strings.Contains(out, ".o_1016_consumer_heartbeat_time = {") {
		t.Error("empty array entry missing")
	}
	if !strings.Contains(out, ".dataOrig = NULL,") {
		t.Error("empty array should have no data pointer")
	}

	hOut := string(CANopenNodeH(dict))
	if !strings.Contains(hOut, "uint8_t x1016_consumer_heartbeat_time_sub0;") {
		t.Error("empty array still declares subindex 0 storage")
	}
}
