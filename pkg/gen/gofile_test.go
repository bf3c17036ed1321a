package gen

import (
	"strings"
	"testing"
)

func TestGoFile(t *testing.T) {
	dict := testDict(t)

	out, err := GoFile("test_card", dict, "testcard")
	if err != nil {
		t.Fatal(err)
	}
	src := string(out)

	for _, want := range []string{
		"// Code generated by candb for test_card. DO NOT EDIT.",
		"package testcard",
		"type Entry struct {",
		"type ReadingsState uint8",
		"ReadingsStateOff   ReadingsState = 0",
		"ReadingsStateFault ReadingsState = 2",
		"ReadingsFlagsCharging    uint8 = 0x3",
		"ReadingsFlagsOvercurrent uint8 = 0x80",
		`"readings_vbatt": {Index: 0x4000, Subindex: 0x1, DataType: "uint16"},`,
		`"other_card_sensor_temperature": {Index: 0x5008, Subindex: 0x1, DataType: "int8"},`,
		"var TPDOs = []int{1}",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated file missing %q", want)
		}
	}

	if strings.Contains(src, "device_type") {
		t.Error("objects below 0x4000 must not become entries")
	}
}

func TestGoFileRejectsBrokenSource(t *testing.T) {
	dict := testDict(t)

	if _, err := GoFile("test_card", dict, "1bad"); err == nil {
		t.Error("an invalid package name should fail formatting")
	}
}
