package gen

import (
	"strings"
	"testing"

	"github.com/aurorasat/candb/pkg/od"
)

func beaconFields(t *testing.T, dict *od.ObjectDictionary) []*od.Variable {
	t.Helper()
	var fields []*od.Variable
	for _, ref := range [][]string{
		{"readings", "vbatt"},
		{"hw_version"},
		{"other_card", "sensor_temperature"},
	} {
		v, err := dict.Entry(ref...)
		if err != nil {
			t.Fatal(err)
		}
		fields = append(fields, v)
	}
	return fields
}

func TestBeaconDoc(t *testing.T) {
	dict := testDict(t)
	fields := beaconFields(t, dict)

	out := string(BeaconDoc("AuroraSat0.5", 2, dict, fields))

	for _, want := range []string{
		"# AuroraSat0.5 Beacon Definition",
		"Revision: 2",
		"| 0 | c3 | ax25_header | octet_str | 16 |",
		"| 16 | c3 | readings_vbatt | uint16 | 2 |",
		"| 18 | c3 | hw_version | str | 3 |",
		"| 21 | other_card | sensor_temperature | int8 | 1 |",
		"| 22 | c3 | crc32 | uint32 | 4 |",
		"Total length: 26",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("beacon doc missing %q:\n%s", want, out)
		}
	}
}

func TestODDoc(t *testing.T) {
	dict := testDict(t)
	out := string(ODDoc("test_card", dict))

	for _, want := range []string{
		"# test_card Object Dictionary",
		"Node ID: 0x04",
		"| 0x1000 | 0x0 | device_type | uint32 | ro |",
		"| 0x4000 | 0x1 | vbatt | uint16 | ro | mV |",
		"| 0x5008 | 0x1 | sensor_temperature | int8 | rw |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("OD doc missing %q", want)
		}
	}
}
