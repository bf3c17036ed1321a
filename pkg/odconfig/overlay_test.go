package odconfig

import (
	"reflect"
	"testing"
)

func TestApplyOverlayReplacesSubindexes(t *testing.T) {
	base, err := ParseCardConfig([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}

	overlay, err := ParseCardConfig([]byte(`
objects:
  - index: 0x4000
    name: readings
    object_type: record
    subindexes:
      - subindex: 0x1
        name: pack_vbatt
        data_type: uint32
        access_type: ro
      - subindex: 0x6
        name: cell_delta
        data_type: uint16
        access_type: ro
`))
	if err != nil {
		t.Fatal(err)
	}

	ApplyOverlay(base, overlay)

	readings := base.Objects[0]
	if readings.Subindexes[0].Name != "pack_vbatt" {
		t.Errorf("matching subindex not renamed: %+v", readings.Subindexes[0])
	}
	if readings.Subindexes[0].DataType != "uint32" {
		t.Errorf("matching subindex type not replaced: %+v", readings.Subindexes[0])
	}
	if readings.Subindexes[0].Unit != "mV" {
		t.Errorf("overlay should keep the base unit, got %q", readings.Subindexes[0].Unit)
	}
	if len(readings.Subindexes) != 3 || readings.Subindexes[2].Name != "cell_delta" {
		t.Errorf("new subindex not appended: %+v", readings.Subindexes)
	}
}

func TestApplyOverlayReplacesPDOMapping(t *testing.T) {
	base, err := ParseCardConfig([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}

	overlay, err := ParseCardConfig([]byte(`
tpdos:
  - num: 1
    fields:
      - [status]
    event_timer_ms: 5000
  - num: 7
    fields:
      - [readings, current]
`))
	if err != nil {
		t.Fatal(err)
	}

	ApplyOverlay(base, overlay)

	if !reflect.DeepEqual(base.TPDOs[0].Fields, [][]string{{"status"}}) {
		t.Errorf("tpdo 1 fields = %v", base.TPDOs[0].Fields)
	}
	if base.TPDOs[0].EventTimerMs != 5000 {
		t.Errorf("tpdo 1 event timer = %d", base.TPDOs[0].EventTimerMs)
	}
	if len(base.TPDOs) != 3 || base.TPDOs[2].Num != 7 {
		t.Errorf("new tpdo not appended: %+v", base.TPDOs)
	}
}

func TestApplyOverlayAddsObjectsAndGenPDOs(t *testing.T) {
	base, err := ParseCardConfig([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}

	overlay, err := ParseCardConfig([]byte(`
objects:
  - index: 0x4100
    name: extra
    data_type: uint8

rpdos_gen:
  - card: c3
    tpdo_num: 1
`))
	if err != nil {
		t.Fatal(err)
	}

	ApplyOverlay(base, overlay)

	if len(base.Objects) != 3 || base.Objects[2].Name != "extra" {
		t.Errorf("new object not appended: %+v", base.Objects)
	}
	if len(base.RPDOsGen) != 1 || base.RPDOsGen[0].Card != "c3" {
		t.Errorf("rpdos_gen = %+v", base.RPDOsGen)
	}
}
