package gen

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aurorasat/candb/pkg/od"
)

func TestKaitai(t *testing.T) {
	dict := testDict(t)
	fields := beaconFields(t, dict)

	out, err := Kaitai("aurorasat0_5", dict, fields)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Meta struct {
			ID     string `yaml:"id"`
			Endian string `yaml:"endian"`
		} `yaml:"meta"`
		Types map[string]struct {
			Seq []map[string]any `yaml:"seq"`
		} `yaml:"types"`
	}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}

	if doc.Meta.ID != "aurorasat0_5" || doc.Meta.Endian != "le" {
		t.Errorf("meta = %+v", doc.Meta)
	}

	payload, ok := doc.Types["ax25_info_data"]
	if !ok {
		t.Fatal("ax25_info_data type missing")
	}
	if len(payload.Seq) != len(fields)+1 {
		t.Fatalf("payload has %d entries, want %d fields plus crc", len(payload.Seq), len(fields))
	}

	first := payload.Seq[0]
	if first["id"] != "c3_readings_vbatt" || first["type"] != "u2" {
		t.Errorf("first payload entry = %v", first)
	}

	str := payload.Seq[1]
	if str["type"] != "str" || str["size"] != 3 || str["encoding"] != "ASCII" {
		t.Errorf("string entry = %v", str)
	}

	last := payload.Seq[len(payload.Seq)-1]
	if last["id"] != "crc32" || last["type"] != "u4" {
		t.Errorf("crc entry = %v", last)
	}

	if !strings.Contains(string(out), "ax25_frame") {
		t.Error("frame wrapper type missing")
	}
}

func TestKaitaiRejectsUnmappableTypes(t *testing.T) {
	dict := testDict(t)
	v := &od.Variable{Index: 0x4100, Name: "blob", DataType: od.OctetString, Default: []byte{1}}
	if err := dict.Add(v); err != nil {
		t.Fatal(err)
	}

	if _, err := Kaitai("aurorasat0_5", dict, []*od.Variable{v}); err == nil {
		t.Error("octet_str beacon fields have no kaitai type and should fail")
	}
}
