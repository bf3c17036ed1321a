package odb

import (
	"strings"
	"testing"
)

const sampleRoster = `name,nice_name,node_id,processor,opd_address,opd_always_on,base,child
c3,C3,0x01,octavo,0x00,true,c3,
battery_1,Battery 1,0x04,stm32,0x18,true,battery,
solar_1,Solar Module 1,0x0C,stm32,0x1C,false,solar,
`

func TestParseCards(t *testing.T) {
	cards, err := ParseCards(strings.NewReader(sampleRoster))
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}

	battery := cards["battery_1"]
	if battery.NodeID != 0x04 {
		t.Errorf("battery node id = 0x%02X", battery.NodeID)
	}
	if battery.NiceName != "Battery 1" || battery.Processor != "stm32" {
		t.Errorf("battery = %+v", battery)
	}
	if !battery.OPDAlwaysOn || battery.OPDAddress != 0x18 {
		t.Errorf("battery opd = %+v", battery)
	}
	if battery.Base != "battery" {
		t.Errorf("battery base = %q", battery.Base)
	}
}

func TestParseCardsMissingColumn(t *testing.T) {
	_, err := ParseCards(strings.NewReader("name,node_id\nc3,0x01\n"))
	if err == nil {
		t.Error("missing columns should fail")
	}
}

func TestParseCardsBadNodeID(t *testing.T) {
	roster := `name,nice_name,node_id,processor,opd_address,opd_always_on,base,child
c3,C3,banana,octavo,0x00,true,c3,
`
	if _, err := ParseCards(strings.NewReader(roster)); err == nil {
		t.Error("bad node id should fail")
	}
}
