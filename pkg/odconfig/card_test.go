package odconfig

import (
	"reflect"
	"testing"
)

const sampleCard = `
std_objects:
  - scet
  - versions

objects:
  - index: 0x4000
    name: readings
    object_type: record
    subindexes:
      - subindex: 0x1
        name: vbatt
        data_type: uint16
        description: battery voltage
        access_type: ro
        unit: mV
      - subindex: 0x2
        name: current
        data_type: int16
        access_type: ro
        unit: mA
        scale_factor: 0.5
  - index: 0x4001
    name: status
    data_type: uint8
    value_descriptions:
      off: 0
      on: 1
    bit_definitions:
      fault: 7

tpdos:
  - num: 1
    fields:
      - [readings, vbatt]
      - [readings, current]
    event_timer_ms: 30000
  - num: 2
    fields:
      - [status]
    transmission_type: sync
    sync: 5

fram:
  - [readings, vbatt]
`

func TestParseCardConfig(t *testing.T) {
	config, err := ParseCardConfig([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}

	if len(config.StdObjects) != 2 || config.StdObjects[0] != "scet" {
		t.Errorf("std_objects = %v", config.StdObjects)
	}
	if len(config.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(config.Objects))
	}

	readings := config.Objects[0]
	if readings.Index != 0x4000 || readings.ObjectType != "record" {
		t.Errorf("readings = %+v", readings)
	}
	if len(readings.Subindexes) != 2 {
		t.Fatalf("got %d subindexes, want 2", len(readings.Subindexes))
	}
	vbatt := readings.Subindexes[0]
	if vbatt.Subindex != 1 || vbatt.DataType != "uint16" || vbatt.AccessType != "ro" {
		t.Errorf("vbatt = %+v", vbatt)
	}
	if vbatt.ScaleFactor != 1 {
		t.Errorf("vbatt scale_factor = %v, want 1 by default", vbatt.ScaleFactor)
	}
	if readings.Subindexes[1].ScaleFactor != 0.5 {
		t.Errorf("current scale_factor = %v", readings.Subindexes[1].ScaleFactor)
	}

	status := config.Objects[1]
	if status.ObjectType != "variable" {
		t.Errorf("object_type defaults to variable, got %q", status.ObjectType)
	}
	if status.AccessType != "rw" {
		t.Errorf("access_type defaults to rw, got %q", status.AccessType)
	}
	if status.ValueDescriptions["on"] != 1 {
		t.Errorf("value_descriptions = %v", status.ValueDescriptions)
	}
	if !reflect.DeepEqual([]int(status.BitDefinitions["fault"]), []int{7}) {
		t.Errorf("bit_definitions = %v", status.BitDefinitions)
	}

	if len(config.TPDOs) != 2 {
		t.Fatalf("got %d tpdos, want 2", len(config.TPDOs))
	}
	if config.TPDOs[0].TransmissionType != "event" {
		t.Errorf("transmission_type defaults to event, got %q", config.TPDOs[0].TransmissionType)
	}
	if config.TPDOs[1].TransmissionType != "sync" || config.TPDOs[1].Sync != 5 {
		t.Errorf("tpdo 2 = %+v", config.TPDOs[1])
	}
	if !reflect.DeepEqual(config.TPDOs[0].Fields[0], []string{"readings", "vbatt"}) {
		t.Errorf("tpdo 1 fields = %v", config.TPDOs[0].Fields)
	}

	if len(config.Fram) != 1 {
		t.Errorf("fram = %v", config.Fram)
	}
}

func TestBitDefForms(t *testing.T) {
	doc := `
objects:
  - index: 0x4000
    name: flags
    data_type: uint16
    bit_definitions:
      single: 3
      span: 4-7
      list: [0, 1]
`
	config, err := ParseCardConfig([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	defs := config.Objects[0].BitDefinitions
	tests := map[string][]int{
		"single": {3},
		"span":   {4, 5, 6, 7},
		"list":   {0, 1},
	}
	for name, want := range tests {
		if got := defs[name].Sorted(); !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	bad := `
objects:
  - index: 0x4000
    name: flags
    data_type: uint16
    bit_definitions:
      broken: "x-y"
`
	if _, err := ParseCardConfig([]byte(bad)); err == nil {
		t.Error("invalid bit range should fail to parse")
	}
}

func TestCardConfigClone(t *testing.T) {
	config, err := ParseCardConfig([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}
	clone := config.Clone()

	clone.Objects[0].Subindexes[0].Name = "changed"
	clone.TPDOs[0].Fields[0][0] = "changed"
	clone.StdObjects[0] = "changed"

	if config.Objects[0].Subindexes[0].Name != "vbatt" {
		t.Error("clone shares subindex data with the original")
	}
	if config.TPDOs[0].Fields[0][0] != "readings" {
		t.Error("clone shares PDO fields with the original")
	}
	if config.StdObjects[0] != "scet" {
		t.Error("clone shares std_objects with the original")
	}
}

func TestParseBeaconConfig(t *testing.T) {
	doc := `
revision: 2
ax25:
  dest_callsign: SPACE
  dest_ssid: 0
  src_callsign: KJ7SAT
  src_ssid: 1
  control: 0x3
  pid: 0xF0
  command: false
  response: true
fields:
  - [beacon, start_chars]
  - [battery_1, pack_1_vbatt]
`
	config, err := ParseBeaconConfig([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if config.Revision != 2 {
		t.Errorf("revision = %d", config.Revision)
	}
	if config.AX25.SrcCallsign != "KJ7SAT" || config.AX25.PID != 0xF0 {
		t.Errorf("ax25 = %+v", config.AX25)
	}
	if len(config.Fields) != 2 || config.Fields[1][0] != "battery_1" {
		t.Errorf("fields = %v", config.Fields)
	}

	if _, err := ParseBeaconConfig([]byte("ax25:\n  src_callsign: TOOLONGCALL\n")); err == nil {
		t.Error("long callsign should fail")
	}
}
