package gen

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aurorasat/candb/pkg/od"
)

// kaitaiTypes maps entry data types to Kaitai Struct primitive type names.
var kaitaiTypes = map[od.DataType]string{
	od.Boolean:       "u1",
	od.Integer8:      "s1",
	od.Integer16:     "s2",
	od.Integer32:     "s4",
	od.Integer64:     "s8",
	od.Unsigned8:     "u1",
	od.Unsigned16:    "u2",
	od.Unsigned32:    "u4",
	od.Unsigned64:    "u8",
	od.Real32:        "f4",
	od.Real64:        "f8",
	od.VisibleString: "str",
}

// Kaitai renders a Kaitai Struct definition for decoding the mission's
// beacon frames: the AX.25 UI frame wrapper plus one seq entry per beacon
// payload field.
func Kaitai(mission string, c3 *od.ObjectDictionary, fields []*od.Variable) ([]byte, error) {
	payload := make([]map[string]any, 0, len(fields))
	for _, v := range fields {
		kt, ok := kaitaiTypes[v.DataType]
		if !ok {
			return nil, fmt.Errorf("beacon field %s: no kaitai type for %s", v.Name, v.DataType)
		}
		card, name := beaconFieldName(c3, v)
		entry := map[string]any{
			"id":   card + "_" + name,
			"type": kt,
			"doc":  v.Description,
		}
		if kt == "str" {
			entry["encoding"] = "ASCII"
			entry["size"] = v.Size()
		}
		payload = append(payload, entry)
	}
	payload = append(payload, map[string]any{
		"id":   "crc32",
		"type": "u4",
		"doc":  "packet checksum",
	})

	doc := map[string]any{
		"meta": map[string]any{
			"id":     mission,
			"title":  mission + " beacon decoder",
			"endian": "le",
		},
		"doc": mission + " beacon frame",
		"seq": []map[string]any{
			{
				"id":      "ax25_frame",
				"type":    "ax25_frame",
				"doc-ref": "https://www.tapr.org/pub_ax25.html",
			},
		},
		"types": map[string]any{
			"ax25_frame": map[string]any{
				"seq": []map[string]any{
					{"id": "ax25_header", "type": "ax25_header"},
					{
						"id": "payload",
						"type": map[string]any{
							"switch-on": "ax25_header.ctl & 0x13",
							"cases": map[string]string{
								"0x03": "ui_frame",
								"0x13": "ui_frame",
							},
						},
					},
				},
			},
			"ax25_header": map[string]any{
				"seq": []map[string]any{
					{"id": "dest_callsign_raw", "type": "callsign_raw"},
					{"id": "dest_ssid_raw", "type": "ssid_mask"},
					{"id": "src_callsign_raw", "type": "callsign_raw"},
					{"id": "src_ssid_raw", "type": "ssid_mask"},
					{"id": "ctl", "type": "u1"},
				},
			},
			"callsign_raw": map[string]any{
				"seq": []map[string]any{
					{"id": "callsign_ror", "process": "ror(1)", "size": 6, "type": "callsign"},
				},
			},
			"callsign": map[string]any{
				"seq": []map[string]any{
					{"id": "callsign", "type": "str", "encoding": "ASCII", "size": 6},
				},
			},
			"ssid_mask": map[string]any{
				"seq": []map[string]any{
					{"id": "ssid_mask", "type": "u1"},
				},
				"instances": map[string]any{
					"ssid": map[string]string{"value": "(ssid_mask & 0x0f) >> 1"},
				},
			},
			"ui_frame": map[string]any{
				"seq": []map[string]any{
					{"id": "pid", "type": "u1"},
					{"id": "ax25_info", "type": "ax25_info_data", "size-eos": true},
				},
			},
			"ax25_info_data": map[string]any{"seq": payload},
		},
	}

	return yaml.Marshal(doc)
}
